package bootstrap

import (
	"fmt"
	"path/filepath"

	"chat-relay-be/internal/config"
	"chat-relay-be/internal/controller"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/file"
	"chat-relay-be/internal/service"
	"chat-relay-be/pkg/llm/factory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	HealthController  controller.IHealthController
	SessionController controller.ISessionController
	ChatController    controller.IChatController

	// Background Services (Exposed for main.go to run)
	NamingService service.INamingService

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	// Buffered so a slow naming worker never stalls the chat path that
	// publishes the task.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	// 3. LLM Provider (unsupported backend kind is fatal at construction)
	llmProvider, err := factory.NewLLMProvider(
		cfg.LLM.Backend,
		cfg.LLM.Model,
		cfg.LLM.Endpoint,
		cfg.LLM.APIKey,
		cfg.LLM.CustomHeaders,
	)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	sysLogger.Info("bootstrap", "Initialized LLM backend", map[string]interface{}{
		"backend": cfg.LLM.Backend, "model": cfg.LLM.Model,
	})

	// 4. Session Store
	sessionRepo, err := file.NewSessionRepository(cfg.Storage.SessionsDir, cfg.Chat.MaxHistory, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("initialize session store: %w", err)
	}

	// 5. Services
	chatService := service.NewChatService(
		sessionRepo,
		llmProvider,
		pubSub,
		sysLogger,
		service.ChatServiceConfig{
			Backend:             cfg.LLM.Backend,
			EnableStreaming:     cfg.LLM.EnableStreaming,
			EnableAutoNaming:    cfg.Chat.EnableAutoNaming,
			DefaultSystemPrompt: cfg.Chat.SystemPrompt,
		},
	)

	// Naming chatter stays out of the main log file.
	namingLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "naming.log"))
	namingService := service.NewNamingService(
		pubSub,
		sessionRepo,
		llmProvider,
		cfg.Chat.NamingPrompt,
		namingLogger,
	)

	// 6. Controllers
	return &Container{
		HealthController:  controller.NewHealthController(chatService),
		SessionController: controller.NewSessionController(chatService),
		ChatController:    controller.NewChatController(chatService),

		NamingService: namingService,
		Logger:        sysLogger,
	}, nil
}
