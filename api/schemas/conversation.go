package schemas

import "time"

// -- Conversation Data Model --

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleAPI    Role = "api"
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Turn is one ordered entry of the conversation log.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisEntry is one AI-produced analysis appended to the session's
// analysis log.
type AnalysisEntry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Action is one of the recognized media manipulation verbs.
type Action string

const (
	ActionRepair   Action = "REPAIR"
	ActionDarken   Action = "DARKEN"
	ActionBrighten Action = "BRIGHTEN"
	ActionAnalyze  Action = "ANALYZE"
)

// Command pairs a recognized action with the media file it targets. The action
// is always uppercased; the filename keeps its original case.
type Command struct {
	Action   Action `json:"action"`
	Filename string `json:"filename"`
}

// String renders the command in the wire form the remote party expects,
// e.g. "REPAIR IMG_559.PNG".
func (c Command) String() string {
	return string(c.Action) + " " + c.Filename
}

// ResponseStatus tags every boundary result of the orchestrator.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// Response is the uniform envelope every public orchestrator operation
// returns. Errors are converted at the operation boundary; callers never see a
// raised error from these entry points.
type Response struct {
	Status           ResponseStatus  `json:"status"`
	Message          string          `json:"message,omitempty"`
	ImageURL         string          `json:"image_url,omitempty"`
	ProcessedImages  []MediaAnalysis `json:"processed_images,omitempty"`
	CachedAnalyses   []MediaAnalysis `json:"cached_analyses,omitempty"`
	Analysis         string          `json:"llm_analysis,omitempty"`
	SuggestedActions []string        `json:"suggested_actions,omitempty"`
}

// ErrorResponse builds the uniform error envelope.
func ErrorResponse(err error) Response {
	return Response{Status: StatusError, Message: err.Error()}
}
