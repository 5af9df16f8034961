package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/snjax/nook/internal/config"
)

// SettingsHandler serves the daemon settings. Accepted updates are saved and
// handed to apply so running components pick them up.
type SettingsHandler struct {
	holder *config.Holder
	apply  func(config.Settings)
}

func NewSettingsHandler(holder *config.Holder, apply func(config.Settings)) *SettingsHandler {
	return &SettingsHandler{holder: holder, apply: apply}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.holder.Get())
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	next := h.holder.Get()
	if err := c.BodyParser(&next); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := next.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	saved, err := h.holder.Update(next)
	if err != nil {
		return fail(c, err)
	}
	if h.apply != nil {
		h.apply(saved)
	}
	return c.JSON(saved)
}
