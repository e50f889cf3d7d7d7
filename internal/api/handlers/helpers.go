package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// errorResponse maps service errors onto HTTP status codes.
func errorResponse(c *fiber.Ctx, err error) error {
	var verr *models.ValidationError
	var terr *models.TransitionError

	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
		body = fiber.Map{"error": "validation failed", "fields": verr.Errs}
	case errors.Is(err, models.ErrPostNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrAlreadyPublished), errors.As(err, &terr):
		status = fiber.StatusConflict
	}

	return c.Status(status).JSON(body)
}
