package keshavai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keshav-ai/keshavai/observability"
)

// ChatSessionManager owns the in-memory conversation collection and
// the active-conversation pointer, and orchestrates the send-message
// protocol end to end. Every state-changing operation writes through
// to the Store before it is considered complete; the store is never
// read back within the same operation.
//
// All dependencies are explicit constructor arguments; the manager
// holds no ambient state.
type ChatSessionManager struct {
	store    Store
	client   CompletionClient
	settings SettingsProvider
	logger   observability.Logger

	mu       sync.Mutex
	chats    []*Chat // newest first
	index    map[string]*Chat
	active   string
	images   []GeneratedImage // newest first
	inflight map[string]struct{}
	loading  bool
	lastErr  error
}

// NewChatSessionManager creates a session manager with its
// collaborators. A nil logger disables logging.
func NewChatSessionManager(store Store, client CompletionClient, settings SettingsProvider, logger observability.Logger) *ChatSessionManager {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &ChatSessionManager{
		store:    store,
		client:   client,
		settings: settings,
		logger:   logger,
		index:    make(map[string]*Chat),
		inflight: make(map[string]struct{}),
	}
}

// Load restores persisted chat history and the generated-image log
// from the store. Corrupt documents are logged and replaced with empty
// state rather than failing startup.
func (m *ChatSessionManager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(ctx, KeyChatHistory)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		// first run
	case err != nil:
		return fmt.Errorf("failed to load chat history: %w", err)
	default:
		var history ChatHistory
		if err := json.Unmarshal(raw, &history); err != nil {
			m.logger.WithErr(err).Error("stored chat history is corrupt, starting empty")
		} else {
			m.chats = make([]*Chat, 0, len(history.Chats))
			m.index = make(map[string]*Chat, len(history.Chats))
			for i := range history.Chats {
				chat := history.Chats[i]
				m.chats = append(m.chats, &chat)
				m.index[chat.ID] = &chat
			}
			m.active = history.ActiveChat
			if _, ok := m.index[m.active]; !ok {
				m.active = ""
			}
		}
	}

	raw, err = m.store.Get(ctx, KeyGeneratedImages)
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("failed to load generated images: %w", err)
	default:
		var images []GeneratedImage
		if err := json.Unmarshal(raw, &images); err != nil {
			m.logger.WithErr(err).Error("stored image log is corrupt, starting empty")
		} else {
			m.images = images
		}
	}

	return nil
}

// Chats returns a snapshot of all conversations, newest first.
func (m *ChatSessionManager) Chats() []Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	chats := make([]Chat, 0, len(m.chats))
	for _, chat := range m.chats {
		chats = append(chats, copyChat(chat))
	}
	return chats
}

// ActiveChatID returns the active conversation's ID, or "" when none
// is selected.
func (m *ChatSessionManager) ActiveChatID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CurrentChat returns a snapshot of the active conversation.
func (m *ChatSessionManager) CurrentChat() (Chat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.index[m.active]
	if !ok {
		return Chat{}, false
	}
	return copyChat(chat), true
}

// GeneratedImages returns the image log, newest first.
func (m *ChatSessionManager) GeneratedImages() []GeneratedImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GeneratedImage{}, m.images...)
}

// IsLoading reports whether a send is in flight.
func (m *ChatSessionManager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the current user-visible error. A new send clears it.
func (m *ChatSessionManager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// NewChat creates an empty conversation for the currently selected
// model, makes it active, persists, and returns its ID. Fails with a
// ConfigurationError when no model is selected; no state changes in
// that case.
func (m *ChatSessionManager) NewChat(ctx context.Context) (string, error) {
	ctx, span := StartSpan(ctx, "ChatSessionManager.NewChat")
	defer span.End()

	settings := m.settings.Settings(ctx)
	if settings.ModelID == "" {
		err := &ConfigurationError{Missing: []string{"model"}}
		m.setErr(err)
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chat := m.newChatLocked(settings.ModelID)
	if err := m.persistHistoryLocked(ctx); err != nil {
		return "", err
	}
	return chat.ID, nil
}

// SelectChat makes the conversation with the given ID active and
// persists the pointer. Unknown IDs are silently ignored.
func (m *ChatSessionManager) SelectChat(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; !ok {
		return nil
	}
	m.active = id
	return m.persistHistoryLocked(ctx)
}

// DeleteChat removes the conversation with the given ID. If it was
// active, the first remaining conversation becomes active, or none
// when the collection is empty. Unknown IDs are silently ignored.
func (m *ChatSessionManager) DeleteChat(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; !ok {
		return nil
	}

	delete(m.index, id)
	for i, chat := range m.chats {
		if chat.ID == id {
			m.chats = append(m.chats[:i], m.chats[i+1:]...)
			break
		}
	}

	if m.active == id {
		if len(m.chats) > 0 {
			m.active = m.chats[0].ID
		} else {
			m.active = ""
		}
	}

	return m.persistHistoryLocked(ctx)
}

// ClearHistory empties the conversation collection, the active
// pointer, and the generated-image log, and persists both empty
// documents.
func (m *ChatSessionManager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	m.chats = nil
	m.index = make(map[string]*Chat)
	m.active = ""
	m.images = nil
	m.mu.Unlock()

	emptyHistory, _ := json.Marshal(ChatHistory{Chats: []Chat{}})
	emptyImages, _ := json.Marshal([]GeneratedImage{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.store.Set(gctx, KeyChatHistory, emptyHistory) })
	g.Go(func() error { return m.store.Set(gctx, KeyGeneratedImages, emptyImages) })
	return g.Wait()
}

// SendMessage runs one logical turn: appends the user message to the
// target conversation (creating one if none is active), issues the
// completion request, and applies the assistant's response either
// incrementally (streaming) or as one final message (batch).
//
// Failures before any assistant content is applied roll the
// conversation back to its pre-send message list. A stream failure
// after partial content keeps the partial answer and surfaces a
// *StreamInterruptedError. A second send against a conversation with
// one already in flight is rejected with ErrSendInFlight.
func (m *ChatSessionManager) SendMessage(ctx context.Context, text string, file *FileAttachment) error {
	ctx, span := StartSpan(ctx, "ChatSessionManager.SendMessage")
	defer span.End()

	m.setErr(nil)

	settings := m.settings.Settings(ctx)
	if err := settings.validate(); err != nil {
		m.setErr(err)
		return err
	}

	m.mu.Lock()
	chat, ok := m.index[m.active]
	if !ok {
		chat = m.newChatLocked(settings.ModelID)
	}
	chatID := chat.ID

	if _, busy := m.inflight[chatID]; busy {
		m.mu.Unlock()
		return ErrSendInFlight
	}
	m.inflight[chatID] = struct{}{}
	m.loading = true

	snapshot := append([]Message{}, chat.Messages...)
	chat.Messages = append(chat.Messages, Message{Role: UserRole, Content: text})
	if len(chat.Messages) == 1 {
		chat.Title = DeriveTitle(text)
	}
	// base is the message list the assistant turn is layered on; every
	// stream delta rebuilds Messages as base + one assistant message.
	base := append([]Message{}, chat.Messages...)
	persistErr := m.persistHistoryLocked(ctx)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, chatID)
		m.loading = false
		m.mu.Unlock()
	}()

	if persistErr != nil {
		m.rollback(ctx, chatID, snapshot, persistErr)
		return persistErr
	}

	request := CompletionRequest{
		Model:       settings.ModelID,
		Messages:    base,
		Temperature: completionTemperature,
		Stream:      settings.StreamingEnabled,
		File:        file,
	}

	resp, err := m.client.Complete(ctx, request)
	if err != nil {
		m.rollback(ctx, chatID, snapshot, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		httpErr := classifyHTTPError(resp.StatusCode, body)
		m.rollback(ctx, chatID, snapshot, httpErr)
		return httpErr
	}

	if settings.StreamingEnabled {
		return m.consumeStream(ctx, resp.Body, chatID, base, snapshot)
	}
	return m.consumeBatch(ctx, resp.Body, chatID, base, snapshot)
}

// consumeStream applies SSE deltas to the conversation, persisting on
// every delta.
func (m *ChatSessionManager) consumeStream(ctx context.Context, body io.Reader, chatID string, base, snapshot []Message) error {
	reader := NewStreamReader(body, m.logger)

	_, err := reader.Process(ctx, func(delta, full string) error {
		return m.applyAssistantContent(ctx, chatID, base, full, delta)
	})
	if err == nil {
		return nil
	}

	var interrupted *StreamInterruptedError
	if errors.As(err, &interrupted) {
		// Partial answer already applied and persisted; keep it.
		m.setErr(err)
		return err
	}

	m.rollback(ctx, chatID, snapshot, err)
	return err
}

// batchResponse is the non-streaming completion body; the core reads
// choices[0].message.content.
type batchResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// consumeBatch appends the single assistant message from a full-JSON
// response.
func (m *ChatSessionManager) consumeBatch(ctx context.Context, body io.Reader, chatID string, base, snapshot []Message) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		wrapped := &TransportError{Err: err}
		m.rollback(ctx, chatID, snapshot, wrapped)
		return wrapped
	}

	var response batchResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		decodeErr := fmt.Errorf("failed to decode completion response: %w", err)
		m.rollback(ctx, chatID, snapshot, decodeErr)
		return decodeErr
	}

	content := ""
	if len(response.Choices) > 0 {
		content = response.Choices[0].Message.Content
	}

	return m.applyAssistantContent(ctx, chatID, base, content, content)
}

// applyAssistantContent replaces the conversation's assistant turn
// with the accumulated content, records any image URLs found in the
// new fragment, and persists.
func (m *ChatSessionManager) applyAssistantContent(ctx context.Context, chatID string, base []Message, full, fragment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.index[chatID]
	if !ok {
		return fmt.Errorf("conversation %s no longer exists", chatID)
	}

	chat.Messages = append(append([]Message{}, base...), Message{Role: AssistantRole, Content: full})
	imagesChanged := m.recordImagesLocked(fragment)

	if err := m.persistHistoryLocked(ctx); err != nil {
		return err
	}
	if imagesChanged {
		return m.persistImagesLocked(ctx)
	}
	return nil
}

// rollback restores the conversation's message list to its pre-send
// snapshot, persists the reverted state, and records the error. The
// conversation itself is kept.
func (m *ChatSessionManager) rollback(ctx context.Context, chatID string, snapshot []Message, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastErr = cause
	chat, ok := m.index[chatID]
	if !ok {
		return
	}
	chat.Messages = snapshot
	if err := m.persistHistoryLocked(ctx); err != nil {
		m.logger.WithErr(err).WithFields(map[string]interface{}{"chat": chatID}).Error("failed to persist rollback")
	}
}

// newChatLocked creates and registers a conversation; caller holds the
// lock and persists.
func (m *ChatSessionManager) newChatLocked(modelID string) *Chat {
	chat := newChat(modelID)
	m.chats = append([]*Chat{chat}, m.chats...)
	m.index[chat.ID] = chat
	m.active = chat.ID
	return chat
}

// recordImagesLocked scans text for image URLs and prepends unseen
// ones to the log. Reports whether the log changed.
func (m *ChatSessionManager) recordImagesLocked(text string) bool {
	urls := ExtractImageURLs(text)
	if len(urls) == 0 {
		return false
	}

	known := make(map[string]struct{}, len(m.images))
	for _, image := range m.images {
		known[image.URL] = struct{}{}
	}

	changed := false
	for _, url := range urls {
		if _, ok := known[url]; ok {
			continue
		}
		m.images = append([]GeneratedImage{{URL: url, CreatedAt: time.Now()}}, m.images...)
		known[url] = struct{}{}
		changed = true
	}
	return changed
}

func (m *ChatSessionManager) persistHistoryLocked(ctx context.Context) error {
	history := ChatHistory{
		Chats:      make([]Chat, 0, len(m.chats)),
		ActiveChat: m.active,
	}
	for _, chat := range m.chats {
		history.Chats = append(history.Chats, *chat)
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	return m.store.Set(ctx, KeyChatHistory, raw)
}

func (m *ChatSessionManager) persistImagesLocked(ctx context.Context) error {
	raw, err := json.Marshal(m.images)
	if err != nil {
		return fmt.Errorf("failed to marshal image log: %w", err)
	}
	return m.store.Set(ctx, KeyGeneratedImages, raw)
}

func (m *ChatSessionManager) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func copyChat(chat *Chat) Chat {
	copied := *chat
	copied.Messages = append([]Message{}, chat.Messages...)
	return copied
}
