package controller

import (
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
}

type chatbotController struct {
	chatbotService service.IChatbotService
	cleanupService service.ICleanupService
}

func NewChatbotController(chatbotService service.IChatbotService, cleanupService service.ICleanupService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
		cleanupService: cleanupService,
	}
}

func (cc *chatbotController) RegisterRoutes(r fiber.Router) {
	chats := r.Group("/chats", serverutils.JwtMiddleware)
	chats.Post("/", cc.SendChat)
	chats.Get("/", cc.GetChatHistory)

	sessions := r.Group("/chat-sessions", serverutils.JwtMiddleware)
	sessions.Get("/", cc.GetAllSessions)
	sessions.Patch("/:id", cc.RenameSession)
	sessions.Delete("/:id", cc.DeleteSession)

	// maintenance endpoint, invoked by the scheduler rather than end users
	r.Get("/cleanup-chats", cc.CleanupChats)
}

func (cc *chatbotController) SendChat(ctx *fiber.Ctx) error {
	ownerEmail, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}

	var request dto.SendChatRequest
	if err := ctx.BodyParser(&request); err != nil {
		return serverutils.NewInvalidArgument("Malformed request body")
	}
	if err := serverutils.ValidateRequest(&request); err != nil {
		return err
	}

	response, err := cc.chatbotService.SendChat(ctx.UserContext(), ownerEmail, &request)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Chat processed", response))
}

func (cc *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	ownerEmail, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}

	var sessionId *uuid.UUID
	if raw := ctx.Query("sessionId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return serverutils.NewInvalidArgument("Invalid sessionId")
		}
		sessionId = &parsed
	}

	history, err := cc.chatbotService.GetChatHistory(ctx.UserContext(), ownerEmail, sessionId)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Chat history retrieved", history))
}

func (cc *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	ownerEmail, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}

	sessions, err := cc.chatbotService.GetAllSessions(ctx.UserContext(), ownerEmail)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Chat sessions retrieved", sessions))
}

func (cc *chatbotController) RenameSession(ctx *fiber.Ctx) error {
	ownerEmail, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewInvalidArgument("Invalid session id")
	}

	var request dto.RenameSessionRequest
	if err := ctx.BodyParser(&request); err != nil {
		return serverutils.NewInvalidArgument("Malformed request body")
	}
	if err := serverutils.ValidateRequest(&request); err != nil {
		return err
	}

	response, err := cc.chatbotService.RenameSession(ctx.UserContext(), ownerEmail, sessionId, &request)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Chat session renamed", response))
}

func (cc *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	ownerEmail, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewInvalidArgument("Invalid session id")
	}

	if err := cc.chatbotService.DeleteSession(ctx.UserContext(), ownerEmail, sessionId); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Chat session deleted", fiber.Map{
		"id": sessionId,
	}))
}

func (cc *chatbotController) CleanupChats(ctx *fiber.Ctx) error {
	result, err := cc.cleanupService.SweepAll(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Cleanup finished", result))
}

func ownerFromContext(ctx *fiber.Ctx) (string, error) {
	ownerEmail, _ := ctx.Locals(serverutils.OwnerEmailKey).(string)
	if ownerEmail == "" {
		return "", serverutils.NewUnauthorized("Unauthorized")
	}
	return ownerEmail, nil
}
