package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

var (
	ErrEmptyInput      = errors.New("empty input")
	ErrNoActiveSession = errors.New("no active session")
)

type IChatService interface {
	Backend() string
	CreateSession(systemPrompt string) (*contract.Session, error)
	ActivateSession(id string) (*contract.Session, error)
	ListSessions() ([]contract.SessionSummary, error)
	DeleteSession(id string) error
	RenameSession(id, name string) error
	HasActiveSession() bool
	History() ([]contract.Message, error)
	Send(ctx context.Context, text string) error
	SendStream(ctx context.Context, text string, emit func(dto.StreamEvent) error)
	UpdateMessage(index int, content string) error
	TruncateMessages(count int) (int, error)
	Reset() error
}

type ChatServiceConfig struct {
	Backend             string
	EnableStreaming     bool
	EnableAutoNaming    bool
	DefaultSystemPrompt string
}

type chatService struct {
	repo     contract.ISessionRepository
	provider llm.LLMProvider
	pubSub   *gochannel.GoChannel
	logger   logger.ILogger
	cfg      ChatServiceConfig

	mu       sync.RWMutex
	activeId string
}

func NewChatService(
	repo contract.ISessionRepository,
	provider llm.LLMProvider,
	pubSub *gochannel.GoChannel,
	sysLogger logger.ILogger,
	cfg ChatServiceConfig,
) IChatService {
	if cfg.DefaultSystemPrompt == "" {
		cfg.DefaultSystemPrompt = constant.DefaultSystemPrompt
	}
	return &chatService{
		repo:     repo,
		provider: provider,
		pubSub:   pubSub,
		logger:   sysLogger,
		cfg:      cfg,
	}
}

func (s *chatService) Backend() string {
	return s.cfg.Backend
}

func (s *chatService) CreateSession(systemPrompt string) (*contract.Session, error) {
	if systemPrompt == "" {
		systemPrompt = s.cfg.DefaultSystemPrompt
	}
	session, err := s.repo.Create(systemPrompt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeId = session.Id
	s.mu.Unlock()
	return session, nil
}

func (s *chatService) ActivateSession(id string) (*contract.Session, error) {
	session, err := s.repo.Load(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeId = session.Id
	s.mu.Unlock()
	return session, nil
}

func (s *chatService) ListSessions() ([]contract.SessionSummary, error) {
	return s.repo.List()
}

func (s *chatService) DeleteSession(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	// Deleting the active session deactivates it; no replacement is created.
	s.mu.Lock()
	if s.activeId == id {
		s.activeId = ""
	}
	s.mu.Unlock()
	return nil
}

func (s *chatService) RenameSession(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyInput
	}
	return s.repo.Rename(id, name)
}

func (s *chatService) HasActiveSession() bool {
	return s.activeSessionId() != ""
}

func (s *chatService) activeSessionId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeId
}

func (s *chatService) History() ([]contract.Message, error) {
	id := s.activeSessionId()
	if id == "" {
		return []contract.Message{}, nil
	}
	session, err := s.repo.Load(id)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

// Send is the non-streaming chat path: one complete round trip, both sides
// persisted before returning.
func (s *chatService) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	id := s.activeSessionId()
	if id == "" {
		return ErrNoActiveSession
	}

	session, err := s.repo.Load(id)
	if err != nil {
		return err
	}

	reply, err := s.provider.Chat(ctx, text, toLLMHistory(session.Messages), session.SystemPrompt)
	if err != nil {
		return err
	}

	s.persistExchange(id, text, reply, len(session.Messages))
	return nil
}

// SendStream relays fragments to emit as they arrive. Any streaming failure
// (disabled by config, connect error, mid-stream error) degrades exactly once
// to the non-streaming call, delivered as a single fragment. Fragments
// already emitted are not retracted.
func (s *chatService) SendStream(ctx context.Context, text string, emit func(dto.StreamEvent) error) {
	requestId := uuid.NewString()

	text = strings.TrimSpace(text)
	if text == "" {
		s.emitError(emit, ErrEmptyInput)
		return
	}

	id := s.activeSessionId()
	if id == "" {
		s.emitError(emit, ErrNoActiveSession)
		return
	}

	session, err := s.repo.Load(id)
	if err != nil {
		s.emitError(emit, err)
		return
	}
	history := toLLMHistory(session.Messages)

	var full strings.Builder
	streamFailed := !s.cfg.EnableStreaming

	if !streamFailed {
		chunks, err := s.provider.ChatStream(ctx, text, history, session.SystemPrompt)
		if err != nil {
			s.logger.Warn("chat", "Streaming request failed, falling back", map[string]interface{}{
				"request_id": requestId, "session_id": id, "error": err.Error(),
			})
			streamFailed = true
		} else {
			for chunk := range chunks {
				if chunk.Err != nil {
					s.logger.Warn("chat", "Stream broke mid-flight, falling back", map[string]interface{}{
						"request_id": requestId, "session_id": id, "error": chunk.Err.Error(),
					})
					streamFailed = true
					break
				}
				full.WriteString(chunk.Content)
				if err := emit(dto.StreamEvent{Chunk: chunk.Content}); err != nil {
					// Client is gone; drain the producer and stop. Nothing
					// is persisted for a half-delivered exchange.
					for range chunks {
					}
					s.logger.Info("chat", "Client disconnected during stream", map[string]interface{}{
						"request_id": requestId, "session_id": id,
					})
					return
				}
			}
		}
	}

	if streamFailed {
		reply, err := s.provider.Chat(ctx, text, history, session.SystemPrompt)
		if err != nil {
			s.logger.Error("chat", "Fallback completion failed", map[string]interface{}{
				"request_id": requestId, "session_id": id, "error": err.Error(),
			})
			s.emitError(emit, err)
			return
		}
		full.WriteString(reply)
		if err := emit(dto.StreamEvent{Chunk: reply}); err != nil {
			return
		}
	}

	s.persistExchange(id, text, full.String(), len(session.Messages))

	if err := emit(dto.StreamEvent{Done: true}); err != nil {
		s.logger.Info("chat", "Client disconnected before done frame", map[string]interface{}{
			"request_id": requestId, "session_id": id,
		})
	}
}

// persistExchange appends both sides of the exchange and fires the naming
// task when the session just went from zero to two messages and still wears
// its placeholder name.
func (s *chatService) persistExchange(sessionId, userText, assistantText string, priorCount int) {
	if err := s.repo.AppendMessage(sessionId, constant.ChatMessageRoleUser, userText); err != nil {
		s.logger.Error("chat", "Failed to persist user message", map[string]interface{}{
			"session_id": sessionId, "error": err.Error(),
		})
		return
	}
	if err := s.repo.AppendMessage(sessionId, constant.ChatMessageRoleAssistant, assistantText); err != nil {
		s.logger.Error("chat", "Failed to persist assistant message", map[string]interface{}{
			"session_id": sessionId, "error": err.Error(),
		})
		return
	}

	if priorCount == 0 {
		s.maybeQueueNaming(sessionId)
	}
}

// maybeQueueNaming re-checks the trigger condition by value: exactly two
// messages and name still equal to id.
func (s *chatService) maybeQueueNaming(sessionId string) {
	if !s.cfg.EnableAutoNaming {
		return
	}

	session, err := s.repo.Load(sessionId)
	if err != nil || len(session.Messages) != 2 || session.Name != session.Id {
		return
	}

	payload, err := json.Marshal(dto.SessionNamingMessage{SessionId: sessionId})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(constant.SessionNamingTopic, msg); err != nil {
		s.logger.Warn("chat", "Failed to queue naming task", map[string]interface{}{
			"session_id": sessionId, "error": err.Error(),
		})
	}
}

func (s *chatService) emitError(emit func(dto.StreamEvent) error, err error) {
	_ = emit(dto.StreamEvent{Error: err.Error()})
}

func (s *chatService) UpdateMessage(index int, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyInput
	}

	id := s.activeSessionId()
	if id == "" {
		return ErrNoActiveSession
	}
	return s.repo.UpdateMessage(id, index, content)
}

func (s *chatService) TruncateMessages(count int) (int, error) {
	id := s.activeSessionId()
	if id == "" {
		return 0, ErrNoActiveSession
	}
	return s.repo.TruncateMessages(id, count)
}

func (s *chatService) Reset() error {
	id := s.activeSessionId()
	if id == "" {
		return ErrNoActiveSession
	}
	return s.repo.Clear(id)
}

func toLLMHistory(messages []contract.Message) []llm.Message {
	history := make([]llm.Message, len(messages))
	for i, msg := range messages {
		history[i] = llm.Message{Role: msg.Role, Content: msg.Content}
	}
	return history
}
