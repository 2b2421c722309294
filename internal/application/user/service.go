package user

import (
	"context"
	"errors"
	"strings"
	"unicode"

	policies "trubid-backend/internal/application/policies/user"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/constants"
	"trubid-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("User not found")
	ErrEmailTaken          = errors.New("Email already registered")
	ErrUserNameTaken       = errors.New("Username already registered")
	ErrNoUpdates     error = domain.Invalid("body", "No valid update fields provided")
)

const passwordCost = 10

// Service owns accounts. Rdb is used to revoke sessions on role change and removal.
type Service struct {
	DB    *gorm.DB
	Guard database.Guard
	Rdb   *redis.Client
}

type CreateUserInput struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// UpdateUserInput carries the self-service profile fields. Nil means unchanged; role is not
// editable here.
type UpdateUserInput struct {
	UserName *string `json:"user_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Fullname *string `json:"fullname"`
}

func (in UpdateUserInput) empty() bool {
	return in.UserName == nil && in.Email == nil && in.Password == nil && in.Fullname == nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !validation.IsValidEmail(email) {
		return "", domain.Invalid("email", "Invalid email format")
	}
	return email, nil
}

func normalizeUserName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", domain.Invalid("user_name", "Username is required")
	}
	return name, nil
}

func normalizeFullname(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.Invalid("fullname", "Full name is required")
	}
	if !validation.IsValidFullname(trimmed) {
		return "", domain.Invalid("fullname", "Full name may only contain letters, spaces, hyphens and apostrophes")
	}
	return titleCase(trimmed), nil
}

func hashPassword(raw string) (string, error) {
	if !validation.IsValidPassword(raw) {
		return "", domain.Invalid("password", "Invalid password format")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ensureUnique returns ErrEmailTaken or ErrUserNameTaken when another account (not self) holds
// the value. Removed accounts still hold theirs. self may be uuid.Nil on registration.
func (s *Service) ensureUnique(ctx context.Context, column, value string, self uuid.UUID) error {
	var count int64
	err := s.Guard.Run(ctx, "check "+column, func(ctx context.Context) error {
		q := s.DB.WithContext(ctx).Unscoped().Model(&domain.User{}).Where(column+" = ?", value)
		if self != uuid.Nil {
			q = q.Where("user_id <> ?", self)
		}
		return q.Count(&count).Error
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if column == "email" {
		return ErrEmailTaken
	}
	return ErrUserNameTaken
}

// CreateUser registers a bidder account with the user role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	userName, err := normalizeUserName(in.UserName)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	fullname, err := normalizeFullname(in.Fullname)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, "email", email, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, "user_name", userName, uuid.Nil); err != nil {
		return nil, err
	}

	u := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Fullname:     fullname,
		Role:         constants.User,
	}
	err = s.Guard.Run(ctx, "create user", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser applies a profile change to the caller's own account.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	if in.empty() {
		return nil, ErrNoUpdates
	}
	upd := map[string]interface{}{}
	if in.UserName != nil {
		name, err := normalizeUserName(*in.UserName)
		if err != nil {
			return nil, err
		}
		if err := s.ensureUnique(ctx, "user_name", name, userID); err != nil {
			return nil, err
		}
		upd["user_name"] = name
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureUnique(ctx, "email", email, userID); err != nil {
			return nil, err
		}
		upd["email"] = email
	}
	if in.Fullname != nil {
		fullname, err := normalizeFullname(*in.Fullname)
		if err != nil {
			return nil, err
		}
		upd["fullname"] = fullname
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		upd["password_hash"] = hash
	}

	var updated int64
	err := s.Guard.Run(ctx, "update user", func(ctx context.Context) error {
		res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", userID).Updates(upd)
		updated = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, ErrUserNotFound
	}
	return s.FindByID(ctx, userID)
}

// FindByID also serves as the notification directory lookup.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.Guard.Run(ctx, "load user", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("user_id = ?", id).First(&u).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAdmins returns every admin, oldest account first.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.Guard.Run(ctx, "list admins", func(ctx context.Context) error {
		users = nil
		return s.DB.WithContext(ctx).Where("role = ?", constants.Admin).Order("created_at ASC").Find(&users).Error
	})
	return users, err
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.Guard.Run(ctx, "list users", func(ctx context.Context) error {
		users = nil
		return s.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	})
	return users, err
}

type UpdateUserRoleInput struct {
	ActorUserID  string
	ActorRole    string
	TargetUserID string
	TargetRole   string
}

// UpdateUserRole changes the target's role after the policy check and signs them out everywhere
// so the new role applies on their next login.
func (s *Service) UpdateUserRole(ctx context.Context, in UpdateUserRoleInput) (*domain.User, error) {
	target, err := policies.ValidateRoleAssignment(ctx, s.DB, policies.ValidateRoleAssignmentParams{
		ActorRole:    in.ActorRole,
		TargetRole:   in.TargetRole,
		ActorUserID:  in.ActorUserID,
		TargetUserID: in.TargetUserID,
	})
	if err != nil {
		return nil, err
	}
	err = s.Guard.Run(ctx, "update role", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Model(target).Update("role", in.TargetRole).Error
	})
	if err != nil {
		return nil, err
	}
	target.Role = in.TargetRole
	middleware.DestroyUserSessions(ctx, s.Rdb, in.TargetUserID)
	return target, nil
}

type RemoveUserInput struct {
	ActorUserID  string
	ActorRole    string
	TargetUserID string
}

// RemoveUser soft-deletes the target and destroys their sessions. Their listings and bids stay.
func (s *Service) RemoveUser(ctx context.Context, in RemoveUserInput) error {
	target, err := policies.ValidateRemoval(ctx, s.DB, policies.ValidateRemovalParams{
		ActorUserID:  in.ActorUserID,
		ActorRole:    in.ActorRole,
		TargetUserID: in.TargetUserID,
	})
	if err != nil {
		return err
	}
	err = s.Guard.Run(ctx, "remove user", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Delete(target).Error
	})
	if err != nil {
		return err
	}
	middleware.DestroyUserSessions(ctx, s.Rdb, in.TargetUserID)
	return nil
}

// titleCase collapses runs of whitespace and capitalizes each word: "  jane   doe" -> "Jane Doe".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
