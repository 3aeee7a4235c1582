package schemas

import (
	"context"
	"encoding/json"
)

// -- Remote Endpoint Interfaces --

// DataSource fetches rows from the remote relational-data endpoint. The
// fetches are typed per query so callers never have to sniff row shapes.
type DataSource interface {
	// FetchUsers returns all user rows, narrowed to {id, name}.
	FetchUsers(ctx context.Context) ([]UserRow, error)
	// FetchConnections returns all KNOWS relationship rows.
	FetchConnections(ctx context.Context) ([]ConnectionRow, error)
	// Query passes an opaque query through and returns the raw reply. The
	// caller owns interpretation of the result shape.
	Query(ctx context.Context, query string) (json.RawMessage, error)
}

// TaskAPI is the remote reporting/session endpoint. It drives both the
// conversation workflow (answer is "START", a command string, or a final
// description) and result submission for computed answers.
type TaskAPI interface {
	// Report posts {task, apikey, answer} and returns the decoded reply.
	Report(ctx context.Context, task string, answer any) (*TaskReply, error)
}

// MediaFetcher downloads raw media bytes from a URL.
type MediaFetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
	// MediaURL resolves a bare filename to its full URL under the remote
	// media convention.
	MediaURL(filename string) string
}

// TaskReply is the decoded response of the report endpoint. The remote party
// returns arbitrary JSON; Code and Message cover the documented fields and
// Raw preserves the rest.
type TaskReply struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Raw     json.RawMessage `json:"-"`
}

// -- Graph Store Interface --

// SocialGraph abstracts the property-graph database holding User nodes and
// KNOWS relationships.
type SocialGraph interface {
	// Rebuild atomically replaces the whole graph with the given rows. Rows
	// missing required fields and edges with dangling endpoints are skipped.
	// Returns the number of nodes and edges actually created.
	Rebuild(ctx context.Context, users []UserRow, connections []ConnectionRow) (nodes, edges int, err error)
	// ShortestPath returns the node names along one shortest path between the
	// two named nodes, traversing KNOWS edges in either direction. Returns nil
	// when either endpoint is absent or no path exists.
	ShortestPath(ctx context.Context, startName, endName string) ([]string, error)
	// Counts reports the current node and relationship totals, used for
	// post-sync verification logging.
	Counts(ctx context.Context) (nodes, edges int, err error)
	// Close releases the underlying connection. Call exactly once.
	Close(ctx context.Context) error
}

// -- AI Capability Interface --

// AIService is the external AI collaborator: chat completion, vision,
// speech-to-text and image generation.
type AIService interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
	AnalyzeImage(ctx context.Context, imageDataURI string) (string, error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (url string, err error)
}

// -- Analysis Store Interface --

// AnalysisStore persists MediaAnalysis records keyed by file name.
type AnalysisStore interface {
	Get(ctx context.Context, fileName string) (*MediaAnalysis, error)
	Put(ctx context.Context, analysis MediaAnalysis) error
	Delete(ctx context.Context, fileName string) error
	// List returns all records of the given category, newest first.
	List(ctx context.Context, category string) ([]MediaAnalysis, error)
	// Clear removes every record of the given category.
	Clear(ctx context.Context, category string) error
}
