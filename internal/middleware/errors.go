package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// JSONErrorHandler renders every error as {"message": "..."} so clients can
// surface the service's reason verbatim.
func JSONErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}
