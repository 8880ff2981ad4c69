package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/pkg/serverutils"
	"chat-relay-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	History(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	ChatStream(ctx *fiber.Ctx) error
	UpdateMessage(ctx *fiber.Ctx) error
	DeleteMessages(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Get("/history", c.History)
	r.Post("/chat", c.Chat)
	r.Post("/chat/stream", c.ChatStream)
	r.Put("/history/messages/:index", c.UpdateMessage)
	r.Delete("/history/messages", c.DeleteMessages)
	r.Post("/reset", c.Reset)
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	messages, err := c.service.History()
	if err != nil {
		return err
	}

	res := make([]dto.MessageResponse, len(messages))
	for i, msg := range messages {
		res[i] = dto.MessageResponse{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
	}
	return ctx.JSON(res)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.Send(ctx.Context(), req.Text); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

func (c *chatController) ChatStream(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return service.ErrEmptyInput
	}
	if !c.service.HasActiveSession() {
		return service.ErrNoActiveSession
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	text := req.Text
	// The writer runs after this handler returns, so it must not touch ctx.
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		c.service.SendStream(context.Background(), text, func(event dto.StreamEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		})
	}))
	return nil
}

func (c *chatController) UpdateMessage(ctx *fiber.Ctx) error {
	index, err := ctx.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message index")
	}

	var req dto.UpdateMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.UpdateMessage(index, req.Content); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

func (c *chatController) DeleteMessages(ctx *fiber.Ctx) error {
	req := dto.DeleteMessagesRequest{Count: 1}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	deleted, err := c.service.TruncateMessages(req.Count)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success", "deleted": deleted})
}

func (c *chatController) Reset(ctx *fiber.Ctx) error {
	if err := c.service.Reset(); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
