package learning

// ConceptItem is one step of a learning plan. Items have no identity beyond their position.
type ConceptItem struct {
	Concept    string `json:"concept"`
	VideoTitle string `json:"video_title"`
	Channel    string `json:"channel"`
	VideoURL   string `json:"video_url"`
	Reason     string `json:"reason"`
}

// Plan is ordered prerequisite-first.
type Plan []ConceptItem

// Clone returns a copy that shares nothing with p.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	copy(out, p)
	return out
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CloneHistory returns a copy of h that shares nothing with it.
func CloneHistory(h []ConversationTurn) []ConversationTurn {
	if h == nil {
		return nil
	}
	out := make([]ConversationTurn, len(h))
	copy(out, h)
	return out
}

// ExecutionResult is the outcome of one sandbox run.
type ExecutionResult struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	Error         string  `json:"error"`
	ExecutionTime float64 `json:"execution_time"`
}

type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// GeneratedProblem is a Python source document derived from one video's transcript.
type GeneratedProblem struct {
	VideoID    string `json:"videoId"`
	PythonFile string `json:"pythonFile"`
	Usage      Usage  `json:"usage"`
}
