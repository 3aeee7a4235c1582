package schemas

// -- AI Capability Schemas --

// ChatRole is the speaker of a chat message sent to the AI capability.
type ChatRole string

const (
	ChatSystem    ChatRole = "system"
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
)

// ChatMessage is one ordered element of a completion request.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// CompletionOptions tunes a single completion call. Unset values fall back to
// the client's configured defaults. Temperature is a pointer so that an
// explicit zero stays distinguishable from "use the default".
type CompletionOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
