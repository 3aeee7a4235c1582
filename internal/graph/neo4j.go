package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/config"
)

const (
	cypherNameConstraint = `CREATE CONSTRAINT user_name_unique IF NOT EXISTS FOR (u:User) REQUIRE u.name IS UNIQUE`
	cypherClear          = `MATCH (n:User) DETACH DELETE n`
	cypherCreateUsers    = `UNWIND $users AS u CREATE (:User {userId: u.id, name: u.name})`
	cypherCreateEdges    = `UNWIND $pairs AS p
MATCH (a:User {userId: p.source}), (b:User {userId: p.target})
CREATE (a)-[:KNOWS]->(b)`
	cypherNodeExists = `MATCH (n:User {name: $name}) RETURN n.name AS name LIMIT 1`
	cypherShortest   = `MATCH p = shortestPath((s:User {name: $start})-[:KNOWS*]-(e:User {name: $end}))
RETURN [node IN nodes(p) | node.name] AS names`
	cypherCounts = `MATCH (n:User)
OPTIONAL MATCH (:User)-[r:KNOWS]->(:User)
RETURN count(DISTINCT n) AS nodes, count(DISTINCT r) AS edges`
)

// Neo4jGraph stores the social graph in a Neo4j instance. Rebuild runs as a
// single write transaction so readers never observe a cleared-but-unfilled
// graph.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
	log    *zap.Logger
}

var _ schemas.SocialGraph = (*Neo4jGraph)(nil)

// NewNeo4jGraph connects to Neo4j, verifies connectivity and ensures the
// name-uniqueness constraint exists.
func NewNeo4jGraph(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Neo4jGraph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	g := &Neo4jGraph{driver: driver, log: logger.Named("neo4j")}
	if err := g.ensureConstraint(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return g, nil
}

// ensureConstraint is idempotent. Schema changes cannot share a transaction
// with data writes in Neo4j, so this runs in its own session once at startup.
func (g *Neo4jGraph) ensureConstraint(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, cypherNameConstraint, nil); err != nil {
		return fmt.Errorf("creating name constraint: %w", err)
	}
	return nil
}

// Rebuild clears the graph and recreates it from the given rows inside one
// managed write transaction. Invalid rows and connections with unresolvable
// endpoints are filtered out before the write.
func (g *Neo4jGraph) Rebuild(ctx context.Context, users []schemas.UserRow, connections []schemas.ConnectionRow) (int, int, error) {
	started := time.Now()

	known := make(map[string]struct{}, len(users))
	userParams := make([]map[string]any, 0, len(users))
	for _, u := range users {
		if u.ID == "" || u.Name == "" {
			g.log.Warn("Skipping user row with missing fields", zap.String("id", u.ID), zap.String("name", u.Name))
			continue
		}
		known[u.ID] = struct{}{}
		userParams = append(userParams, map[string]any{"id": u.ID, "name": u.Name})
	}

	pairParams := make([]map[string]any, 0, len(connections))
	for _, c := range connections {
		if _, ok := known[c.SourceID]; !ok {
			g.log.Debug("Skipping connection with unknown source", zap.String("source_id", c.SourceID))
			continue
		}
		if _, ok := known[c.TargetID]; !ok {
			g.log.Debug("Skipping connection with unknown target", zap.String("target_id", c.TargetID))
			continue
		}
		pairParams = append(pairParams, map[string]any{"source": c.SourceID, "target": c.TargetID})
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, cypherClear, nil); err != nil {
			return nil, fmt.Errorf("clearing graph: %w", err)
		}
		if _, err := tx.Run(ctx, cypherCreateUsers, map[string]any{"users": userParams}); err != nil {
			return nil, fmt.Errorf("creating user nodes: %w", err)
		}
		if _, err := tx.Run(ctx, cypherCreateEdges, map[string]any{"pairs": pairParams}); err != nil {
			return nil, fmt.Errorf("creating relationships: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return 0, 0, err
	}

	g.log.Info("Graph rebuilt",
		zap.Int("nodes", len(userParams)),
		zap.Int("edges", len(pairParams)),
		zap.Duration("duration", time.Since(started)))
	return len(userParams), len(pairParams), nil
}

// ShortestPath returns the node names along one shortest KNOWS path between
// the two named users, treating relationships as undirected. A nil slice
// means no path exists or an endpoint is missing. When start and end name the
// same existing user the path is that single node; Cypher's shortestPath
// rejects identical endpoints so the case is handled with an existence check.
func (g *Neo4jGraph) ShortestPath(ctx context.Context, startName, endName string) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	if startName == endName {
		res, err := session.Run(ctx, cypherNodeExists, map[string]any{"name": startName})
		if err != nil {
			return nil, fmt.Errorf("checking node existence: %w", err)
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return []string{startName}, nil
	}

	res, err := session.Run(ctx, cypherShortest, map[string]any{"start": startName, "end": endName})
	if err != nil {
		return nil, fmt.Errorf("running shortest path query: %w", err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	raw, ok := records[0].Get("names")
	if !ok {
		return nil, fmt.Errorf("shortest path result missing names column")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected names column type %T", raw)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected node name type %T", item)
		}
		names = append(names, name)
	}
	return names, nil
}

// Counts queries the current node and relationship totals.
func (g *Neo4jGraph) Counts(ctx context.Context) (int, int, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypherCounts, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("counting graph contents: %w", err)
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, 0, err
	}
	nodes, _ := record.Get("nodes")
	edges, _ := record.Get("edges")
	n, _ := nodes.(int64)
	e, _ := edges.(int64)
	return int(n), int(e), nil
}

// Close releases the underlying driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
