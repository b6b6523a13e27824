package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a conversation. Ordering within a request is
// significant and preserved through every adapter mapping.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delta is one incremental fragment of generated text emitted during a
// streaming call, tagged with the model that produced it.
type Delta struct {
	Text     string `json:"text"`
	ModelKey string `json:"model"`
}
