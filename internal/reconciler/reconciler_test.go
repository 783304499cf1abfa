package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/internal/api"
	"tether/internal/dependency"
	"tether/internal/graph"
	"tether/internal/hostname"
	"tether/internal/instance"
	"tether/internal/resolver"
)

var acme = api.Owner{ID: "1", Username: "acme"}

func inst(id string, env ...string) *api.Instance {
	return &api.Instance{
		ID: id, Name: id, LowerName: id, ShortHash: id, Owner: acme,
		ElasticHostname: id + "-staging-acme.runnableapp.com", Env: env,
	}
}

type fixture struct {
	deps *dependency.Service
	dir  *instance.MemoryDirectory
	rec  *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gen, err := hostname.NewGenerator(hostname.Config{})
	require.NoError(t, err)

	deps := dependency.New(graph.NewMemoryStore())
	dir := instance.NewMemoryDirectory()
	return &fixture{deps: deps, dir: dir, rec: New(deps, resolver.New(deps, dir, gen))}
}

// apply mirrors a topology reload: the directory is replaced, then reconciled.
func (f *fixture) apply(t *testing.T, instances ...*api.Instance) (Report, error) {
	t.Helper()
	f.dir.Replace(instances...)
	return f.rec.Reconcile(context.Background(), instances)
}

func (f *fixture) direct(t *testing.T, id string) []string {
	t.Helper()
	deps, err := f.deps.GetDependencies(context.Background(), id, dependency.GetOptions{})
	require.NoError(t, err)
	ids := make([]string, 0, len(deps))
	for _, d := range deps {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	web := inst("web", "API=http://api-staging-acme.runnableapp.com")
	api1 := inst("api", "DB=db-staging-acme.runnableapp.com:5432")
	db := inst("db")

	report, err := f.apply(t, web, api1, db)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Upserted)
	assert.Equal(t, 2, report.Added)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, []string{"api"}, f.direct(t, "web"))
	assert.Equal(t, []string{"db"}, f.direct(t, "api"))

	report, err = f.apply(t, web, api1, db)
	require.NoError(t, err)
	assert.Zero(t, report.Added)
	assert.Zero(t, report.Removed)
}

func TestReconcile_DeletesVanishedInstances(t *testing.T) {
	f := newFixture(t)
	web := inst("web", "API=http://api-staging-acme.runnableapp.com")
	api1 := inst("api")

	_, err := f.apply(t, web, api1)
	require.NoError(t, err)

	report, err := f.apply(t, web)
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, report.Deleted)
	assert.Empty(t, f.direct(t, "web"))

	_, err = f.deps.Node(context.Background(), "api")
	assert.True(t, api.IsNotFound(err))
}

func TestReconcile_FirstPassDeletesLeftoverNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	web := inst("web", "API=http://api-staging-acme.runnableapp.com")
	api1 := inst("api")
	old := inst("old")

	// A previous process registered "old" and linked it to api.
	require.NoError(t, f.deps.UpsertNode(ctx, api1))
	require.NoError(t, f.deps.UpsertNode(ctx, old))
	require.NoError(t, f.deps.AddEdge(ctx, "old", "api", api1.ElasticHostname))

	report, err := f.apply(t, web, api1)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, report.Deleted)

	_, err = f.deps.Node(ctx, "old")
	assert.True(t, api.IsNotFound(err))
	dependents, err := f.deps.GetDependents(ctx, "api")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "web", dependents[0].ID)

	report, err = f.apply(t, web, api1)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
}

func TestReconcile_EnvironmentChange(t *testing.T) {
	f := newFixture(t)
	web := inst("web", "API=http://api-staging-acme.runnableapp.com")
	api1 := inst("api")
	db := inst("db")

	_, err := f.apply(t, web, api1, db)
	require.NoError(t, err)

	web.Env = []string{"DB=db-staging-acme.runnableapp.com"}
	report, err := f.apply(t, web, api1, db)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"db"}, f.direct(t, "web"))
}

func TestReconcile_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rec.Reconcile(ctx, []*api.Instance{inst("web")})
	require.Error(t, err)
	assert.True(t, api.IsStoreUnavailable(err))
}
