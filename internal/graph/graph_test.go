package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

func seedGraph(t *testing.T) *MemoryGraph {
	t.Helper()
	g := NewMemoryGraph(zap.NewNop())
	users := []schemas.UserRow{
		{ID: "1", Name: "Rafał"},
		{ID: "2", Name: "Azazel"},
		{ID: "3", Name: "Barbara"},
		{ID: "4", Name: "Samuel"},
	}
	connections := []schemas.ConnectionRow{
		{SourceID: "1", TargetID: "2"},
		{SourceID: "2", TargetID: "3"},
		{SourceID: "1", TargetID: "4"},
	}
	_, _, err := g.Rebuild(context.Background(), users, connections)
	require.NoError(t, err)
	return g
}

func TestMemoryGraphRebuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("skips invalid rows and dangling edges", func(t *testing.T) {
		t.Parallel()
		g := NewMemoryGraph(zap.NewNop())
		users := []schemas.UserRow{
			{ID: "1", Name: "Rafał"},
			{ID: "2", Name: "Barbara"},
			{ID: "", Name: "Nameless"},
			{ID: "3", Name: "Azazel"},
		}
		connections := []schemas.ConnectionRow{
			{SourceID: "1", TargetID: "2"},
			{SourceID: "2", TargetID: "3"},
			{SourceID: "1", TargetID: "99"},
		}
		nodes, edges, err := g.Rebuild(ctx, users, connections)
		require.NoError(t, err)
		assert.Equal(t, 3, nodes)
		assert.Equal(t, 2, edges)
	})

	t.Run("replaces previous contents", func(t *testing.T) {
		t.Parallel()
		g := seedGraph(t)
		nodes, edges, err := g.Rebuild(ctx, []schemas.UserRow{{ID: "10", Name: "Lucyna"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, nodes)
		assert.Equal(t, 0, edges)

		path, err := g.ShortestPath(ctx, "Rafał", "Barbara")
		require.NoError(t, err)
		assert.Nil(t, path)
	})
}

func TestMemoryGraphShortestPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("finds the shortest chain", func(t *testing.T) {
		t.Parallel()
		g := seedGraph(t)
		path, err := g.ShortestPath(ctx, "Rafał", "Barbara")
		require.NoError(t, err)
		assert.Equal(t, []string{"Rafał", "Azazel", "Barbara"}, path)
	})

	t.Run("is symmetric", func(t *testing.T) {
		t.Parallel()
		g := seedGraph(t)
		forward, err := g.ShortestPath(ctx, "Rafał", "Barbara")
		require.NoError(t, err)
		backward, err := g.ShortestPath(ctx, "Barbara", "Rafał")
		require.NoError(t, err)
		assert.Len(t, backward, len(forward))
	})

	t.Run("identical endpoints yield a single node", func(t *testing.T) {
		t.Parallel()
		g := seedGraph(t)
		path, err := g.ShortestPath(ctx, "Barbara", "Barbara")
		require.NoError(t, err)
		assert.Equal(t, []string{"Barbara"}, path)
	})

	t.Run("missing endpoints yield no path", func(t *testing.T) {
		t.Parallel()
		g := seedGraph(t)
		path, err := g.ShortestPath(ctx, "Rafał", "Nonexistent")
		require.NoError(t, err)
		assert.Nil(t, path)

		path, err = g.ShortestPath(ctx, "Nonexistent", "Barbara")
		require.NoError(t, err)
		assert.Nil(t, path)
	})

	t.Run("disconnected components yield no path", func(t *testing.T) {
		t.Parallel()
		g := NewMemoryGraph(zap.NewNop())
		users := []schemas.UserRow{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}
		_, _, err := g.Rebuild(ctx, users, nil)
		require.NoError(t, err)

		path, err := g.ShortestPath(ctx, "A", "B")
		require.NoError(t, err)
		assert.Nil(t, path)
	})
}

type fakeSource struct {
	users       []schemas.UserRow
	connections []schemas.ConnectionRow
	usersErr    error
	connErr     error
}

func (s *fakeSource) FetchUsers(ctx context.Context) ([]schemas.UserRow, error) {
	return s.users, s.usersErr
}

func (s *fakeSource) FetchConnections(ctx context.Context) ([]schemas.ConnectionRow, error) {
	return s.connections, s.connErr
}

func (s *fakeSource) Query(ctx context.Context, query string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func TestIndexerSync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success reports written counts", func(t *testing.T) {
		t.Parallel()
		source := &fakeSource{
			users: []schemas.UserRow{
				{ID: "1", Name: "Rafał"},
				{ID: "2", Name: "Barbara"},
				{ID: "3", Name: "Azazel"},
			},
			connections: []schemas.ConnectionRow{
				{SourceID: "1", TargetID: "2"},
				{SourceID: "2", TargetID: "3"},
				{SourceID: "3", TargetID: "77"},
			},
		}
		ix := NewIndexer(source, NewMemoryGraph(zap.NewNop()), zap.NewNop())
		result := ix.Sync(ctx)
		assert.Equal(t, schemas.SyncSuccess, result.Status)
		assert.Equal(t, 3, result.NodeCount)
		assert.Equal(t, 2, result.EdgeCount)
	})

	t.Run("fetch failure yields an error result", func(t *testing.T) {
		t.Parallel()
		source := &fakeSource{usersErr: errors.New("endpoint down")}
		ix := NewIndexer(source, NewMemoryGraph(zap.NewNop()), zap.NewNop())
		result := ix.Sync(ctx)
		assert.Equal(t, schemas.SyncError, result.Status)
		assert.Contains(t, result.Message, "endpoint down")
	})

	t.Run("empty user table yields an error result", func(t *testing.T) {
		t.Parallel()
		ix := NewIndexer(&fakeSource{}, NewMemoryGraph(zap.NewNop()), zap.NewNop())
		result := ix.Sync(ctx)
		assert.Equal(t, schemas.SyncError, result.Status)
	})
}

type fakeReporter struct {
	task   string
	answer any
	reply  *schemas.TaskReply
	err    error
	calls  int
}

func (r *fakeReporter) Report(ctx context.Context, task string, answer any) (*schemas.TaskReply, error) {
	r.calls++
	r.task = task
	r.answer = answer
	if r.err != nil {
		return nil, r.err
	}
	return r.reply, nil
}

func TestPathFinderLocate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reports the joined path", func(t *testing.T) {
		t.Parallel()
		reporter := &fakeReporter{reply: &schemas.TaskReply{Code: 0, Message: "OK"}}
		pf := NewPathFinder(seedGraph(t), reporter, zap.NewNop())

		result := pf.Locate(ctx, "Rafał", "Barbara")
		assert.Equal(t, schemas.SyncSuccess, result.Status)
		assert.Equal(t, "Rafał, Azazel, Barbara", result.Path)
		assert.Equal(t, "connections", reporter.task)
		assert.Equal(t, "Rafał, Azazel, Barbara", reporter.answer)
	})

	t.Run("missing path skips the report", func(t *testing.T) {
		t.Parallel()
		reporter := &fakeReporter{reply: &schemas.TaskReply{}}
		pf := NewPathFinder(seedGraph(t), reporter, zap.NewNop())

		result := pf.Locate(ctx, "Rafał", "Nonexistent")
		assert.Equal(t, schemas.SyncError, result.Status)
		assert.Zero(t, reporter.calls)
	})

	t.Run("report failure surfaces in the result", func(t *testing.T) {
		t.Parallel()
		reporter := &fakeReporter{err: errors.New("rejected")}
		pf := NewPathFinder(seedGraph(t), reporter, zap.NewNop())

		result := pf.Locate(ctx, "Rafał", "Barbara")
		assert.Equal(t, schemas.SyncError, result.Status)
		assert.Contains(t, result.Message, "rejected")
	})
}
