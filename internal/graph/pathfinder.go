package graph

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// connectionsTask is the task name the shortest-path answer is reported under.
const connectionsTask = "connections"

// PathFinder answers shortest-path questions over the synchronized graph and
// submits the result to the task API.
type PathFinder struct {
	graph    schemas.SocialGraph
	reporter schemas.TaskAPI
	log      *zap.Logger
}

// NewPathFinder wires a graph backend and a task reporter together.
func NewPathFinder(graph schemas.SocialGraph, reporter schemas.TaskAPI, logger *zap.Logger) *PathFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathFinder{graph: graph, reporter: reporter, log: logger.Named("pathfinder")}
}

// Locate finds the shortest path between the two named users, joins the node
// names with ", " and reports the answer to the connections task. A missing
// path yields an error-status result without a report submission.
func (pf *PathFinder) Locate(ctx context.Context, start, end string) schemas.PathResult {
	names, err := pf.graph.ShortestPath(ctx, start, end)
	if err != nil {
		pf.log.Error("Shortest path query failed", zap.Error(err))
		return schemas.PathResult{Status: schemas.SyncError, Message: fmt.Sprintf("finding path: %v", err)}
	}
	if len(names) == 0 {
		pf.log.Warn("No path between users", zap.String("start", start), zap.String("end", end))
		return schemas.PathResult{
			Status:  schemas.SyncError,
			Message: fmt.Sprintf("no path found between %q and %q", start, end),
		}
	}

	answer := strings.Join(names, ", ")
	pf.log.Info("Shortest path found", zap.Int("hops", len(names)-1), zap.String("path", answer))

	reply, err := pf.reporter.Report(ctx, connectionsTask, answer)
	if err != nil {
		return schemas.PathResult{
			Status:  schemas.SyncError,
			Path:    answer,
			Message: fmt.Sprintf("reporting path: %v", err),
		}
	}

	return schemas.PathResult{
		Status:  schemas.SyncSuccess,
		Path:    answer,
		Message: reply.Message,
	}
}
