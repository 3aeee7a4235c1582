// Package graph holds the social graph backends and the two operations built
// on top of them: the clear-and-rebuild synchronizer and the shortest-path
// finder.
package graph

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// MemoryGraph is a fast, ephemeral, in-memory social graph. It backs tests
// and short-lived runs where a Neo4j instance isn't available.
type MemoryGraph struct {
	mu        sync.RWMutex
	nodes     map[string]schemas.UserRow // keyed by node ID
	nameIndex map[string]string          // display name -> node ID
	// adjacency holds KNOWS neighbors in both directions; path traversal
	// treats the relationship as undirected.
	adjacency map[string][]string
	edgeCount int
	log       *zap.Logger
}

var _ schemas.SocialGraph = (*MemoryGraph)(nil)

// NewMemoryGraph creates an empty in-memory graph.
func NewMemoryGraph(logger *zap.Logger) *MemoryGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryGraph{
		nodes:     make(map[string]schemas.UserRow),
		nameIndex: make(map[string]string),
		adjacency: make(map[string][]string),
		log:       logger.Named("memgraph"),
	}
}

// Rebuild replaces the whole graph with the given rows. Rows missing id or
// name are skipped with a log line; connections whose endpoints don't resolve
// are skipped as well.
func (g *MemoryGraph) Rebuild(ctx context.Context, users []schemas.UserRow, connections []schemas.ConnectionRow) (int, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]schemas.UserRow, len(users))
	g.nameIndex = make(map[string]string, len(users))
	g.adjacency = make(map[string][]string)
	g.edgeCount = 0

	for _, u := range users {
		if u.ID == "" || u.Name == "" {
			g.log.Warn("Skipping user row with missing fields", zap.String("id", u.ID), zap.String("name", u.Name))
			continue
		}
		g.nodes[u.ID] = u
		g.nameIndex[u.Name] = u.ID
	}

	for _, c := range connections {
		if _, ok := g.nodes[c.SourceID]; !ok {
			g.log.Debug("Skipping connection with unknown source", zap.String("source_id", c.SourceID))
			continue
		}
		if _, ok := g.nodes[c.TargetID]; !ok {
			g.log.Debug("Skipping connection with unknown target", zap.String("target_id", c.TargetID))
			continue
		}
		g.adjacency[c.SourceID] = append(g.adjacency[c.SourceID], c.TargetID)
		g.adjacency[c.TargetID] = append(g.adjacency[c.TargetID], c.SourceID)
		g.edgeCount++
	}

	// Sorted neighbor lists keep traversal order deterministic.
	for id := range g.adjacency {
		sort.Strings(g.adjacency[id])
	}

	return len(g.nodes), g.edgeCount, nil
}

// ShortestPath runs a breadth-first search over the undirected adjacency and
// returns the node names along one shortest path, or nil when either endpoint
// is absent or unreachable.
func (g *MemoryGraph) ShortestPath(ctx context.Context, startName, endName string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	startID, ok := g.nameIndex[startName]
	if !ok {
		return nil, nil
	}
	endID, ok := g.nameIndex[endName]
	if !ok {
		return nil, nil
	}
	if startID == endID {
		return []string{startName}, nil
	}

	parent := map[string]string{startID: ""}
	queue := []string{startID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == endID {
				return g.tracePath(parent, endID), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, nil
}

// tracePath walks the BFS parent pointers back from the end node and returns
// the node names in start-to-end order. Caller holds at least a read lock.
func (g *MemoryGraph) tracePath(parent map[string]string, endID string) []string {
	var ids []string
	for id := endID; id != ""; id = parent[id] {
		ids = append(ids, id)
	}
	names := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		names = append(names, g.nodes[ids[i]].Name)
	}
	return names
}

// Counts reports the current node and relationship totals.
func (g *MemoryGraph) Counts(ctx context.Context) (int, int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), g.edgeCount, nil
}

// Close is a no-op for the in-memory backend.
func (g *MemoryGraph) Close(ctx context.Context) error {
	return nil
}
