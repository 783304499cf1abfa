package dependency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/internal/api"
	"tether/internal/events"
	"tether/internal/graph"
)

func newInstance(id, name string) *api.Instance {
	return &api.Instance{
		ID:              id,
		Name:            name,
		LowerName:       name,
		ShortHash:       "h" + id,
		Owner:           api.Owner{ID: "1", Username: "acme"},
		ElasticHostname: name + "-staging-acme.runnableapp.com",
	}
}

// setup registers one node per name, using the name as id.
func setup(t *testing.T, names ...string) (*Service, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	svc := New(graph.NewMemoryStore(), WithPublisher(rec), WithTimeout(time.Second))
	for _, n := range names {
		require.NoError(t, svc.UpsertNode(context.Background(), newInstance(n, n)))
	}
	rec.Reset()
	return svc, rec
}

func link(t *testing.T, svc *Service, pairs ...[2]string) {
	t.Helper()
	for _, p := range pairs {
		require.NoError(t, svc.AddEdge(context.Background(), p[0], p[1], p[1]+"-staging-acme.runnableapp.com"))
	}
}

func ids(deps []*api.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.ID)
	}
	return out
}

func find(deps []*api.Dependency, id string) *api.Dependency {
	for _, d := range deps {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func TestService_UpsertNodeKeepsEdges(t *testing.T) {
	ctx := context.Background()
	svc, rec := setup(t, "web", "api")
	link(t, svc, [2]string{"web", "api"})

	renamed := newInstance("api", "api")
	renamed.ContextVersionID = "cv-2"
	require.NoError(t, svc.UpsertNode(ctx, renamed))

	deps, err := svc.GetDependencies(ctx, "web", GetOptions{})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "cv-2", deps[0].ContextVersionID)
	assert.Equal(t, "api-staging-acme.runnableapp.com", deps[0].Hostname)

	assert.Len(t, rec.OfType(events.TypeNodeUpserted), 1)
	assert.Error(t, svc.UpsertNode(ctx, &api.Instance{}))
}

func TestService_AddEdge(t *testing.T) {
	ctx := context.Background()
	svc, rec := setup(t, "web", "api")

	require.NoError(t, svc.AddEdge(ctx, "web", "api", "old-host"))
	require.NoError(t, svc.AddEdge(ctx, "web", "api", "new-host"))

	deps, err := svc.GetDependencies(ctx, "web", GetOptions{})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "new-host", deps[0].Hostname)
	assert.Len(t, rec.OfType(events.TypeEdgeAdded), 2)

	err = svc.AddEdge(ctx, "web", "ghost", "h")
	assert.True(t, api.IsNotFound(err))
	err = svc.AddEdge(ctx, "ghost", "web", "h")
	assert.True(t, api.IsNotFound(err))
	assert.Len(t, rec.OfType(events.TypeEdgeAdded), 2)
}

func TestService_RemoveEdgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "web", "api")
	link(t, svc, [2]string{"web", "api"})

	require.NoError(t, svc.RemoveEdge(ctx, "web", "api"))
	require.NoError(t, svc.RemoveEdge(ctx, "web", "api"))

	deps, err := svc.GetDependencies(ctx, "web", GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestService_GetDependenciesOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "web")
	for _, inst := range []*api.Instance{
		newInstance("3", "redis"),
		newInstance("1", "mongo"),
		newInstance("2", "api"),
		newInstance("0", "mongo"),
	} {
		require.NoError(t, svc.UpsertNode(ctx, inst))
		require.NoError(t, svc.AddEdge(ctx, "web", inst.ID, inst.ElasticHostname))
	}

	deps, err := svc.GetDependencies(ctx, "web", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "0", "1", "3"}, ids(deps))
}

func TestService_GetDependenciesMissingRoot(t *testing.T) {
	svc, _ := setup(t)
	for _, opts := range []GetOptions{{}, {Recurse: true}, {Recurse: true, Flatten: true}} {
		_, err := svc.GetDependencies(context.Background(), "ghost", opts)
		assert.True(t, api.IsNotFound(err))
	}
}

func TestService_GetDependenciesCycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "a", "b", "c")
	link(t, svc, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})

	t.Run("tree", func(t *testing.T) {
		tree, err := svc.GetDependencies(ctx, "a", GetOptions{Recurse: true})
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, ids(tree))
		require.Equal(t, []string{"c"}, ids(tree[0].Dependencies))
		assert.Empty(t, tree[0].Dependencies[0].Dependencies)
	})

	t.Run("flatten", func(t *testing.T) {
		flat, err := svc.GetDependencies(ctx, "a", GetOptions{Recurse: true, Flatten: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, ids(flat))
		assert.Equal(t, []string{"c"}, ids(find(flat, "b").Dependencies))
		// c still lists its dependency on a even though a is excluded.
		assert.Equal(t, []string{"a"}, ids(find(flat, "c").Dependencies))
	})
}

func TestService_GetDependenciesSelfLoop(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "a", "b")
	link(t, svc, [2]string{"a", "a"}, [2]string{"a", "b"}, [2]string{"b", "b"})

	direct, err := svc.GetDependencies(ctx, "a", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(direct))

	tree, err := svc.GetDependencies(ctx, "a", GetOptions{Recurse: true})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids(tree))
	require.Equal(t, []string{"b"}, ids(tree[0].Dependencies))
	assert.Nil(t, tree[0].Dependencies[0].Dependencies)

	flat, err := svc.GetDependencies(ctx, "a", GetOptions{Recurse: true, Flatten: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(flat))
}

func TestService_GetDependenciesDiamond(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "frontend", "api", "link", "mongodb", "rabbitmq")
	link(t, svc,
		[2]string{"frontend", "api"},
		[2]string{"api", "mongodb"},
		[2]string{"api", "link"},
		[2]string{"link", "mongodb"},
		[2]string{"link", "rabbitmq"},
	)

	tree, err := svc.GetDependencies(ctx, "frontend", GetOptions{Recurse: true})
	require.NoError(t, err)
	require.Equal(t, []string{"api"}, ids(tree))
	api1 := tree[0]
	require.Equal(t, []string{"link", "mongodb"}, ids(api1.Dependencies))
	linkNode := api1.Dependencies[0]
	assert.Equal(t, []string{"mongodb", "rabbitmq"}, ids(linkNode.Dependencies))
	// mongodb was already reached below link, so it is a leaf here.
	assert.Nil(t, api1.Dependencies[1].Dependencies)

	flat, err := svc.GetDependencies(ctx, "frontend", GetOptions{Recurse: true, Flatten: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"api", "link", "mongodb", "rabbitmq"}, ids(flat))
	assert.Equal(t, []string{"mongodb", "rabbitmq"}, ids(find(flat, "link").Dependencies))
	assert.Equal(t, "link-staging-acme.runnableapp.com", find(flat, "link").Hostname)
}

func TestService_GetDependents(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "web", "worker", "api")
	require.NoError(t, svc.AddEdge(ctx, "worker", "api", "api-from-worker"))
	require.NoError(t, svc.AddEdge(ctx, "web", "api", "api-from-web"))

	deps, err := svc.GetDependents(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "worker"}, ids(deps))
	assert.Equal(t, "api-from-web", deps[0].Hostname)

	_, err = svc.GetDependents(ctx, "ghost")
	assert.True(t, api.IsNotFound(err))
}

func TestService_DeleteNodeCleansEdges(t *testing.T) {
	ctx := context.Background()
	svc, rec := setup(t, "web", "api", "db")
	link(t, svc, [2]string{"web", "api"}, [2]string{"api", "db"})

	require.NoError(t, svc.DeleteNode(ctx, "api"))

	deps, err := svc.GetDependencies(ctx, "web", GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, deps)

	dependents, err := svc.GetDependents(ctx, "db")
	require.NoError(t, err)
	assert.Empty(t, dependents)

	_, err = svc.GetDependencies(ctx, "api", GetOptions{})
	assert.True(t, api.IsNotFound(err))

	assert.Len(t, rec.OfType(events.TypeEdgeRemoved), 2)
	assert.Len(t, rec.OfType(events.TypeNodeDeleted), 1)
}

func TestService_RemoveAllEdgesForNode(t *testing.T) {
	ctx := context.Background()
	svc, rec := setup(t, "web", "api", "db")
	link(t, svc, [2]string{"web", "api"}, [2]string{"api", "db"}, [2]string{"api", "api"})

	require.NoError(t, svc.RemoveAllEdgesForNode(ctx, "api"))

	deps, err := svc.GetDependencies(ctx, "api", GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, deps)
	dependents, err := svc.GetDependents(ctx, "api")
	require.NoError(t, err)
	assert.Empty(t, dependents)
	assert.Len(t, rec.OfType(events.TypeEdgeRemoved), 3)
}

func TestService_PublishFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	rec := &events.Recorder{Err: errors.New("broker down")}
	svc := New(graph.NewMemoryStore(), WithPublisher(rec))

	require.NoError(t, svc.UpsertNode(ctx, newInstance("a", "a")))
	require.NoError(t, svc.UpsertNode(ctx, newInstance("b", "b")))
	require.NoError(t, svc.AddEdge(ctx, "a", "b", "h"))
	assert.Len(t, rec.Events(), 3)
}

func TestService_CancelledContext(t *testing.T) {
	svc, _ := setup(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.AddEdge(ctx, "a", "b", "h")
	assert.True(t, api.IsStoreUnavailable(err))
}

func TestService_ConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, "a", "b", "c", "d")
	link(t, svc, [2]string{"a", "b"}, [2]string{"b", "c"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.GetDependencies(ctx, "a", GetOptions{Recurse: true, Flatten: true})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.AddEdge(ctx, "c", "d", "h"))
			assert.NoError(t, svc.RemoveEdge(ctx, "c", "d"))
		}()
	}
	wg.Wait()
}
