package emailtemplates

import (
	"errors"

	"trubid-backend/internal/application/templates"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service     *templates.Service
	DefaultFrom string
}

func respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, templates.ErrTemplateTypeExists):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return apierr.Respond(c, err)
}

// ListTemplates GET /api/v1/email-templates/list-templates
func (h *Handlers) ListTemplates(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context())
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Email templates retrieved", fiber.Map{"templates": list}, fiber.Map{"count": len(list)})
}

// CreateTemplate POST /api/v1/email-templates/create-template
func (h *Handlers) CreateTemplate(c *fiber.Ctx) error {
	var in templates.TemplateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if in.FromEmail == "" {
		in.FromEmail = h.DefaultFrom
	}
	t, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return respond(c, err)
	}
	return response.SuccessCreated(c, "Email template created", fiber.Map{"template": t}, nil)
}

// UpdateTemplate PUT /api/v1/email-templates/update-template/:id
func (h *Handlers) UpdateTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid template ID", fiber.StatusBadRequest, fiber.Map{"field": "id"})
	}
	var in templates.TemplateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if in.FromEmail == "" {
		in.FromEmail = h.DefaultFrom
	}
	t, err := h.Service.Update(c.Context(), id, in)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Email template updated", fiber.Map{"template": t}, nil)
}

// SeedDefaults POST /api/v1/email-templates/seed-defaults
func (h *Handlers) SeedDefaults(c *fiber.Ctx) error {
	created, err := h.Service.SeedDefaults(c.Context(), h.DefaultFrom)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Default templates seeded", fiber.Map{"created": created}, nil)
}
