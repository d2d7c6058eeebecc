package ussd

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Callback parameter names used by the gateway.
const (
	ParamSessionID   = "sessionId"
	ParamServiceCode = "serviceCode"
	ParamPhoneNumber = "phoneNumber"
	ParamText        = "text"
)

// Handler exposes the machine as a Fiber endpoint.
type Handler struct {
	machine *Machine
}

// NewHandler constructs a USSD callback handler.
func NewHandler(machine *Machine) *Handler {
	return &Handler{machine: machine}
}

// Register mounts the callback for both GET and POST.
func (h *Handler) Register(router fiber.Router, path string) {
	router.Get(path, h.Callback)
	router.Post(path, h.Callback)
}

// Callback answers one gateway request.
func (h *Handler) Callback(c *fiber.Ctx) error {
	req := Request{
		SessionID:   Param(c, ParamSessionID),
		ServiceCode: Param(c, ParamServiceCode),
		PhoneNumber: Param(c, ParamPhoneNumber),
		Text:        Param(c, ParamText),
	}
	return Render(c, h.machine.Handle(c.UserContext(), req))
}

// Param reads a callback value from the form body, falling back to the query
// string, so GET and POST deliveries are handled alike.
func Param(c *fiber.Ctx, key string) string {
	if v := c.FormValue(key); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.Query(key))
}
