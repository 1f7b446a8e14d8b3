// Package keshavai implements the chat-session core of the Keshav AI
// client: conversation state, completion requests against an
// OpenAI-compatible endpoint, incremental streaming of assistant
// responses, and write-through persistence to an on-device store.
package keshavai

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	// UserRole represents a message authored by the user.
	UserRole MessageRole = "user"
	// AssistantRole represents a message authored by the model.
	AssistantRole MessageRole = "assistant"
	// SystemRole represents a system instruction message.
	SystemRole MessageRole = "system"
)

// Message is a single turn in a conversation. A message is immutable
// once created; an in-progress assistant turn is replaced wholesale
// with a new value carrying the cumulative text on every stream delta.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Chat is one conversation with a model.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	Model     string    `json:"model"`
}

// ChatHistory is the persisted root document: every conversation plus
// the active-conversation pointer. An empty ActiveChat means none is
// selected; when set it always references an ID present in Chats.
type ChatHistory struct {
	Chats      []Chat `json:"chats"`
	ActiveChat string `json:"activeChat"`
}

// GeneratedImage is one entry in the append-only log of image URLs
// discovered in assistant output, newest first.
type GeneratedImage struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultChatTitle is the placeholder title before the first user
// message arrives.
const DefaultChatTitle = "New Chat"

// titleRuneLimit is where derived titles are truncated.
const titleRuneLimit = 50

func newChat(modelID string) *Chat {
	return &Chat{
		ID:        uuid.NewString(),
		Title:     DefaultChatTitle,
		Messages:  []Message{},
		CreatedAt: time.Now(),
		Model:     modelID,
	}
}

// DeriveTitle produces a conversation title from its first user
// message: the message verbatim, or truncated to 50 runes with an
// ellipsis when longer.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "..."
	}
	return firstMessage
}
