package core

// Message is a single item of the ordered sequence a Runtime produces for a
// query. Concrete message types implement the unexported isMessage marker.
type Message interface{ isMessage() }

// AssistantMessage is one model turn: ordered text, thinking and tool-use blocks.
type AssistantMessage struct {
	Content []Block
	Model   string
}

// isMessage implements the Message interface for AssistantMessage.
func (AssistantMessage) isMessage() {}

// UserMessage carries user-side content, usually tool results fed back to the model.
type UserMessage struct {
	Content []Block
}

// isMessage implements the Message interface for UserMessage.
func (UserMessage) isMessage() {}

// SystemMessage is runtime metadata such as the session init record.
type SystemMessage struct {
	Subtype string
	Data    map[string]any
}

// isMessage implements the Message interface for SystemMessage.
func (SystemMessage) isMessage() {}

// Result subtypes reported by runtimes.
const (
	ResultSuccess              = "success"
	ResultErrorMaxTurns        = "error_max_turns"
	ResultErrorDuringExecution = "error_during_execution"
)

// ResultMessage terminates a query and summarizes its cost and duration.
type ResultMessage struct {
	Subtype       string
	DurationMS    int64
	DurationAPIMS int64
	IsError       bool
	NumTurns      int
	SessionID     string
	TotalCostUSD  *float64 // nil when the runtime cannot price the run
	Usage         map[string]any
	Result        string
}

// isMessage implements the Message interface for ResultMessage.
func (ResultMessage) isMessage() {}
