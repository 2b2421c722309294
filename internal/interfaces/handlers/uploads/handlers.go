package uploads

import (
	"errors"

	uploadsvc "trubid-backend/internal/application/uploads"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

func (h *Handlers) signed(c *fiber.Ctx, bucket string) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, fiber.Map{"field": "file_name"})
	}

	res, err := h.Service.GetSignedUploadURL(c.Context(), bucket, actor.UserID, req.FileName)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return apierr.Respond(c, err)
		}
		log.Error().Err(err).Str("bucket", bucket).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}

// ListingImage POST /api/v1/uploads/listing-image
func (h *Handlers) ListingImage(c *fiber.Ctx) error {
	return h.signed(c, uploadsvc.BucketListingImages)
}

// PaymentQR POST /api/v1/uploads/payment-qr
func (h *Handlers) PaymentQR(c *fiber.Ctx) error {
	return h.signed(c, uploadsvc.BucketPaymentQR)
}
