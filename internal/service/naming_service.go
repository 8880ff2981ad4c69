package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// INamingService consumes queued naming tasks. Failures are swallowed and
// logged; they never reach the chat flow that queued them.
type INamingService interface {
	Consume(ctx context.Context) error
}

type namingService struct {
	pubSub         *gochannel.GoChannel
	repo           contract.ISessionRepository
	provider       llm.LLMProvider
	promptTemplate string
	logger         logger.ILogger
}

func NewNamingService(
	pubSub *gochannel.GoChannel,
	repo contract.ISessionRepository,
	provider llm.LLMProvider,
	promptTemplate string,
	workerLogger logger.ILogger,
) INamingService {
	if promptTemplate == "" {
		promptTemplate = constant.DefaultNamingPrompt
	}
	return &namingService{
		pubSub:         pubSub,
		repo:           repo,
		provider:       provider,
		promptTemplate: promptTemplate,
		logger:         workerLogger,
	}
}

func (ns *namingService) Consume(ctx context.Context) error {
	messages, err := ns.pubSub.Subscribe(ctx, constant.SessionNamingTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ns.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ns *namingService) processMessage(ctx context.Context, msg *message.Message) {
	// Naming is best-effort: every outcome acks, nothing is retried.
	defer msg.Ack()

	var payload dto.SessionNamingMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ns.logger.Warn("naming", "Failed to unmarshal naming task", map[string]interface{}{"error": err.Error()})
		return
	}

	ns.nameSession(ctx, payload.SessionId)
}

func (ns *namingService) nameSession(ctx context.Context, sessionId string) {
	session, err := ns.repo.Load(sessionId)
	if err != nil {
		ns.logger.Warn("naming", "Session vanished before naming", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return
	}

	// A later request or a manual rename may have raced us; re-check by value.
	if len(session.Messages) < 2 || session.Name != session.Id {
		return
	}

	prompt := fmt.Sprintf(ns.promptTemplate,
		truncate(session.Messages[0].Content, constant.NamingUserExcerptLimit),
		truncate(session.Messages[1].Content, constant.NamingAssistantExcerptLimit),
	)

	raw, err := ns.provider.Generate(ctx, prompt)
	if err != nil {
		ns.logger.Warn("naming", "Naming call failed", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return
	}

	name, ok := normalizeSessionName(raw)
	if !ok {
		ns.logger.Info("naming", "Rejected generated name", map[string]interface{}{"session_id": sessionId, "raw": raw})
		return
	}

	if err := ns.repo.Rename(sessionId, name); err != nil {
		ns.logger.Warn("naming", "Failed to store generated name", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return
	}

	ns.logger.Info("naming", "Session named", map[string]interface{}{"session_id": sessionId, "name": name})
}

const reasoningCloseMarker = "</think>"

// normalizeSessionName validates and canonicalizes a raw model reply into an
// underscore-joined label. Accepts underscore-joined or space-joined forms;
// requires 2-5 words of 1-12 lowercase alphanumeric chars each.
func normalizeSessionName(raw string) (string, bool) {
	// Local reasoning models sometimes leak their scratchpad; keep only what
	// follows the closing marker.
	if idx := strings.LastIndex(raw, reasoningCloseMarker); idx >= 0 {
		raw = raw[idx+len(reasoningCloseMarker):]
	}

	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "\"'`.,!?:;")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	var words []string
	if strings.Contains(raw, "_") {
		words = strings.Split(raw, "_")
	} else {
		words = strings.Fields(raw)
	}

	if len(words) < 2 || len(words) > 5 {
		return "", false
	}

	for i, word := range words {
		word = strings.ToLower(strings.Trim(word, "\"'`.,!?:;"))
		if word == "" || len(word) > 12 {
			return "", false
		}
		for _, r := range word {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
				return "", false
			}
		}
		words[i] = word
	}

	return strings.Join(words, "_"), true
}

// truncate cuts s to at most limit characters, never splitting a rune.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
