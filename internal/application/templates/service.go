package templates

import (
	"context"
	"errors"
	"strings"

	"trubid-backend/internal/application/notifications"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound    = errors.New("Email template not found")
	ErrTemplateTypeExists  = errors.New("A template of this type already exists")
	ErrUnknownTemplateType = domain.Invalid("template_type", "Unknown template type")
)

// Service stores the admin-editable email templates.
type Service struct {
	DB    *gorm.DB
	Guard database.Guard
}

type TemplateInput struct {
	TemplateType string `json:"template_type"`
	FromEmail    string `json:"from_email"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

func (s *Service) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	var out []domain.EmailTemplate
	err := s.Guard.Run(ctx, "list templates", func(ctx context.Context) error {
		out = nil
		return s.DB.WithContext(ctx).Order("template_type ASC").Find(&out).Error
	})
	return out, err
}

// GetByType returns nil, nil when no template of that type is stored.
func (s *Service) GetByType(ctx context.Context, templateType string) (*domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	err := s.Guard.Run(ctx, "load template", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("template_type = ?", templateType).First(&t).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func validate(in TemplateInput) error {
	if !notifications.KnownTemplateType(in.TemplateType) {
		return ErrUnknownTemplateType
	}
	if strings.TrimSpace(in.Subject) == "" {
		return domain.Invalid("subject", "Subject is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return domain.Invalid("body", "Body is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in TemplateInput) (*domain.EmailTemplate, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	existing, err := s.GetByType(ctx, in.TemplateType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTemplateTypeExists
	}
	t := &domain.EmailTemplate{
		TemplateType: in.TemplateType,
		FromEmail:    strings.TrimSpace(in.FromEmail),
		Subject:      in.Subject,
		Body:         in.Body,
	}
	if err := s.create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) create(ctx context.Context, t *domain.EmailTemplate) error {
	return s.Guard.Run(ctx, "create template", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Create(t).Error
	})
}

// Update replaces from, subject and body. The template type is fixed once created.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	err := s.Guard.Run(ctx, "load template", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	in.TemplateType = t.TemplateType
	if err := validate(in); err != nil {
		return nil, err
	}
	t.FromEmail = strings.TrimSpace(in.FromEmail)
	t.Subject = in.Subject
	t.Body = in.Body
	err = s.Guard.Run(ctx, "save template", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Save(&t).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SeedDefaults creates the default templates whose type is missing and returns how many it created.
func (s *Service) SeedDefaults(ctx context.Context, from string) (int, error) {
	created := 0
	for _, tpl := range notifications.DefaultTemplates(from) {
		existing, err := s.GetByType(ctx, tpl.TemplateType)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		tpl := tpl
		if err := s.create(ctx, &tpl); err != nil {
			return created, err
		}
		log.Info().Str("template_type", tpl.TemplateType).Msg("default email template created")
		created++
	}
	return created, nil
}
