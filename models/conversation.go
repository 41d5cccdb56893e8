package models

const (
	ROLE_USER      = "user"
	ROLE_ASSISTANT = "assistant"
)

type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PostMemory is the last brand post a user shared with us.
type PostMemory struct {
	Caption   string `json:"caption"`
	Permalink string `json:"permalink"`
}
