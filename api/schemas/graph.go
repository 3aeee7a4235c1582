package schemas

// -- Social Graph Data Model --

// UserRow is one row of the remote "users" table, already narrowed to the two
// fields the graph cares about. Rows missing either field are skipped during
// synchronization.
type UserRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConnectionRow is one row of the remote "connections" table. It describes a
// directed KNOWS relationship between two user IDs.
type ConnectionRow struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// SyncStatus tags the outcome of a graph synchronization run.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncResult reports the outcome of one clear-and-rebuild synchronization run.
// On success NodeCount and EdgeCount reflect what was actually created in the
// graph store; on error Message carries the cause.
type SyncResult struct {
	Status    SyncStatus `json:"status"`
	NodeCount int        `json:"node_count,omitempty"`
	EdgeCount int        `json:"edge_count,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// PathResult is the outcome of a shortest-path lookup. Path holds the node
// names joined with ", " when a path was found.
type PathResult struct {
	Status  SyncStatus `json:"status"`
	Path    string     `json:"path,omitempty"`
	Message string     `json:"message,omitempty"`
}
