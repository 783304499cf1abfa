package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/internal/api"
	"tether/internal/cache"
	"tether/internal/dependency"
	"tether/internal/graph"
	"tether/internal/hostname"
	"tether/internal/instance"
)

var acme = api.Owner{ID: "1", Username: "acme"}

func host(name string) string {
	return name + "-staging-acme.runnableapp.com"
}

func canonical(id, name string, env ...string) *api.Instance {
	return &api.Instance{
		ID: id, Name: name, LowerName: name, ShortHash: id, Owner: acme,
		ElasticHostname: host(name), Env: env,
	}
}

func fork(id, name, group string, master bool, env ...string) *api.Instance {
	return &api.Instance{
		ID: id, Name: api.ForkedLowerName("abc", name, master), LowerName: api.ForkedLowerName("abc", name, master),
		ShortHash: id, Owner: acme, ElasticHostname: host(name), Env: env,
		IsolatedID: group, IsIsolationGroupMaster: master,
	}
}

type fixture struct {
	deps *dependency.Service
	dir  *instance.MemoryDirectory
	res  *Resolver
}

func newFixture(t *testing.T, instances []*api.Instance, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	gen, err := hostname.NewGenerator(hostname.Config{})
	require.NoError(t, err)

	deps := dependency.New(graph.NewMemoryStore())
	dir := instance.NewMemoryDirectory(instances...)
	for _, inst := range instances {
		require.NoError(t, deps.UpsertNode(ctx, inst))
	}
	return &fixture{deps: deps, dir: dir, res: New(deps, dir, gen, opts...)}
}

func (f *fixture) edges(t *testing.T, id string) map[string]string {
	t.Helper()
	deps, err := f.deps.GetDependencies(context.Background(), id, dependency.GetOptions{})
	require.NoError(t, err)
	out := make(map[string]string, len(deps))
	for _, d := range deps {
		out[d.ID] = d.Hostname
	}
	return out
}

func TestSetDependenciesFromEnvironment(t *testing.T) {
	web := canonical("web", "web",
		"API_URL=http://API-staging-acme.runnableapp.com:3000",
		"NOT_A_PAIR",
		"DB=mongodb://mongo-staging-acme.runnableapp.com/db,mongo-staging-acme.runnableapp.com",
		"OTHER=api-staging-globex.runnableapp.com",
		"MISSING=ghost-staging-acme.runnableapp.com",
		"SELF=web-staging-acme.runnableapp.com",
	)
	f := newFixture(t, []*api.Instance{web, canonical("api", "api"), canonical("mongo", "mongo")})

	res, err := f.res.SetDependenciesFromEnvironment(context.Background(), web, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "mongo"}, res.Added)
	assert.Empty(t, res.Removed)

	assert.Equal(t, map[string]string{
		"api":   host("api"),
		"mongo": host("mongo"),
	}, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_Idempotent(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com", "DB=mongo-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, canonical("api", "api"), canonical("mongo", "mongo")})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	first := f.edges(t, "web")

	res, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
	assert.ElementsMatch(t, []string{"api", "mongo"}, res.Unchanged)
	assert.Equal(t, first, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_DiffKeepsUnchangedHostname(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com", "DB=mongo-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, canonical("api", "api"), canonical("mongo", "mongo"), canonical("redis", "redis")})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	require.NoError(t, f.deps.AddEdge(ctx, "web", "api", "legacy-host"))

	web.Env = []string{"API=api-staging-acme.runnableapp.com", "CACHE=redis-staging-acme.runnableapp.com"}
	res, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"redis"}, res.Added)
	assert.Equal(t, []string{"mongo"}, res.Removed)
	assert.Equal(t, []string{"api"}, res.Unchanged)

	assert.Equal(t, map[string]string{
		"api":   "legacy-host",
		"redis": host("redis"),
	}, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_ClearsRemovedReferences(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, canonical("api", "api")})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "")
	require.NoError(t, err)
	require.Len(t, f.edges(t, "web"), 1)

	web.Env = nil
	res, err := f.res.SetDependenciesFromEnvironment(ctx, web, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, res.Removed)
	assert.Empty(t, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_IsolatedPrefersGroupMates(t *testing.T) {
	ctx := context.Background()
	forkWeb := fork("fork-web", "web", "iso-1", true,
		"API=api-staging-acme.runnableapp.com",
		"DB=mongo-staging-acme.runnableapp.com",
	)
	forkAPI := fork("fork-api", "api", "iso-1", false)
	otherAPI := fork("other-api", "api", "iso-2", false)
	f := newFixture(t, []*api.Instance{
		canonical("web", "web"), canonical("api", "api"), canonical("mongo", "mongo"),
		forkWeb, forkAPI, otherAPI,
	})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, forkWeb, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"fork-api": host("api"),
		"mongo":    host("mongo"),
	}, f.edges(t, "fork-web"))
}

func TestSetDependenciesFromEnvironment_NeverResolvesToForks(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{
		web,
		fork("a-fork-api", "api", "iso-1", false),
		canonical("z-api", "api"),
	})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"z-api": host("api")}, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_LowestIDWins(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, canonical("api-2", "api"), canonical("api-1", "api")})

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"api-1": host("api")}, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_MissingNode(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{canonical("api", "api")})
	f.dir.Save(web)

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	assert.True(t, api.IsNotFound(err))
}

func TestSetDependenciesFromEnvironment_TargetWithoutNode(t *testing.T) {
	ctx := context.Background()
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web})
	f.dir.Save(canonical("api", "api"))

	res, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, f.edges(t, "web"))
}

func TestSetDependenciesFromEnvironment_CacheIsVerified(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryHostnameCache(0)
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, canonical("api", "api"), canonical("mongo", "mongo")}, WithCache(c))

	// A stale entry naming the wrong instance must not be trusted.
	require.NoError(t, c.Set(ctx, host("api"), []string{"mongo", "deleted"}))

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"api": host("api")}, f.edges(t, "web"))

	ids, ok := c.Get(ctx, host("api"))
	require.True(t, ok)
	assert.Equal(t, []string{"api"}, ids)
}

func TestSetDependenciesFromEnvironment_CacheHit(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryHostnameCache(0)
	web := canonical("web", "web", "API=api-staging-acme.runnableapp.com")
	worker := canonical("worker", "worker", "API=api-staging-acme.runnableapp.com")
	f := newFixture(t, []*api.Instance{web, worker, canonical("api", "api")}, WithCache(c))

	_, err := f.res.SetDependenciesFromEnvironment(ctx, web, "acme")
	require.NoError(t, err)

	// Once cached, the directory is consulted only to verify the id.
	_, err = f.res.SetDependenciesFromEnvironment(ctx, worker, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"api": host("api")}, f.edges(t, "worker"))
}
