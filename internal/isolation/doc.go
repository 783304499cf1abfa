// Package isolation redirects the dependency edges of a freshly forked
// isolation group so its members reference each other instead of the
// instances they were forked from.
//
// A rewrite only ever touches the outgoing edges of the member being
// rewritten and never adds a dependency the member did not already have.
// For every existing dependency D of a member:
//
//   - if another group member has exactly D's logical name, the edge is
//     redirected to that member;
//   - otherwise the edge is kept, unless D is a fork belonging to some other
//     isolation group, in which case it is pointed back at D's canonical
//     instance (or dropped when there is none).
//
// Members are rewritten concurrently. A failed member does not stop the
// others and nothing is rolled back; re-running the whole operation converges
// on the same result.
package isolation
