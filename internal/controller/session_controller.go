package controller

import (
	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/pkg/serverutils"
	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Activate(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.IChatService
}

func NewSessionController(service service.IChatService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Post(":id/activate", c.Activate)
	h.Delete(":id", c.Delete)
	h.Put(":id/name", c.Rename)
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	summaries, err := c.service.ListSessions()
	if err != nil {
		return err
	}

	res := make([]dto.SessionSummaryResponse, len(summaries))
	for i, summary := range summaries {
		res[i] = dto.SessionSummaryResponse{
			Id:           summary.Id,
			Name:         summary.Name,
			CreatedAt:    summary.CreatedAt,
			LastActive:   summary.LastActive,
			MessageCount: summary.MessageCount,
		}
	}
	return ctx.JSON(fiber.Map{"sessions": res})
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	session, err := c.service.CreateSession(req.SystemPrompt)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.CreateSessionResponse{Id: session.Id, Name: session.Name})
}

func (c *sessionController) Activate(ctx *fiber.Ctx) error {
	session, err := c.service.ActivateSession(ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status":  "success",
		"session": toSessionResponse(session),
	})
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

func (c *sessionController) Rename(ctx *fiber.Ctx) error {
	var req dto.RenameSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.RenameSession(ctx.Params("id"), req.Name); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

func toSessionResponse(session *contract.Session) dto.SessionResponse {
	return dto.SessionResponse{
		Id:           session.Id,
		Name:         session.Name,
		SystemPrompt: session.SystemPrompt,
		CreatedAt:    session.CreatedAt,
		LastActive:   session.LastActive,
		MessageCount: len(session.Messages),
	}
}
