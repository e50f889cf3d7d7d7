package handlers

import "github.com/gofiber/fiber/v2"

func (h *PostHandler) Register(r fiber.Router) {
	r.Post("/posts", h.SchedulePost)
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/:id", h.GetPost)
	r.Get("/posts/:id/logs", h.PublishLog)
	r.Post("/posts/:id/cancel", h.CancelPost)
	r.Get("/calendar", h.CalendarEvents)
}
