package ussd

import (
	"github.com/gofiber/fiber/v2"
)

const contentType = "text/plain; charset=utf-8"

// Response is one rendered USSD reply.
type Response struct {
	Status   int
	Continue bool
	Message  string
}

func con(message string) Response {
	return Response{Status: fiber.StatusOK, Continue: true, Message: message}
}

func end(message string) Response {
	return Response{Status: fiber.StatusOK, Message: message}
}

func clientError(message string) Response {
	return Response{Status: fiber.StatusBadRequest, Message: message}
}

// String renders the body with its CON or END prefix.
func (r Response) String() string {
	if r.Continue {
		return "CON " + r.Message
	}
	return "END " + r.Message
}

// Render writes r as a plain text Fiber response.
func Render(c *fiber.Ctx, r Response) error {
	status := r.Status
	if status == 0 {
		status = fiber.StatusOK
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(status).SendString(r.String())
}

// RenderRaw writes an already rendered body, as cached by the replay layer.
func RenderRaw(c *fiber.Ctx, status int, body string) error {
	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(status).SendString(body)
}
