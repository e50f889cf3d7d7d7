package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s service.ScheduleService
}

func NewPostHandler(service service.ScheduleService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}
	req.OwnerID = GetUserID(c)

	result, err := h.s.Schedule(c.Context(), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c), models.PostStatus(c.Query("status")), c.QueryInt("limit", 0))
	if err != nil {
		return errorResponse(c, err)
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PublishLog(c *fiber.Ctx) error {
	entries, err := h.s.Logs(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if entries == nil {
		entries = []*models.PublishLog{}
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	postID := c.Params("id")

	// Only the owner may cancel; hide foreign posts as not found.
	if _, err := h.s.Get(c.Context(), GetUserID(c), postID); err != nil {
		return errorResponse(c, err)
	}

	if err := h.s.Cancel(c.Context(), postID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post cancelled",
	})
}

func (h *PostHandler) CalendarEvents(c *fiber.Ctx) error {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid start"})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid end"})
	}

	events, err := h.s.Events(c.Context(), GetUserID(c), start, end)
	if err != nil {
		return errorResponse(c, err)
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return c.Status(fiber.StatusOK).JSON(events)
}
