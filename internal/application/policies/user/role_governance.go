package policies

import (
	"context"
	"errors"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/pkg/constants"

	"gorm.io/gorm"
)

var (
	ErrInvalidRole               = errors.New("Invalid role")
	ErrTargetUserNotFound        = errors.New("Target user not found")
	ErrUsersCannotModifyOwnRole  = errors.New("Users cannot modify their own role")
	ErrUsersCannotRemoveThemself = errors.New("Users cannot remove themselves")
	ErrMustHaveAtLeastOneAdmin   = errors.New("There must be at least one admin")
	ErrOnlyAdminsCanAssignRoles  = errors.New("Only admins can assign roles")
	ErrOnlyAdminsCanRemoveUsers  = errors.New("Only admins can remove users")
)

type ValidateRoleAssignmentParams struct {
	ActorRole    string
	TargetRole   string
	ActorUserID  string
	TargetUserID string
}

// ValidateRoleAssignment checks that an admin may give TargetRole to the target user.
// Returns the target on success.
func ValidateRoleAssignment(ctx context.Context, db *gorm.DB, params ValidateRoleAssignmentParams) (*domain.User, error) {
	if params.ActorRole != constants.Admin {
		return nil, ErrOnlyAdminsCanAssignRoles
	}
	if !constants.IsValidRole(params.TargetRole) {
		return nil, ErrInvalidRole
	}
	if params.ActorUserID == params.TargetUserID {
		return nil, ErrUsersCannotModifyOwnRole
	}
	target, err := findTarget(ctx, db, params.TargetUserID)
	if err != nil {
		return nil, err
	}
	if target.Role == constants.Admin && params.TargetRole != constants.Admin {
		if err := requireAnotherAdmin(ctx, db); err != nil {
			return nil, err
		}
	}
	return target, nil
}

type ValidateRemovalParams struct {
	ActorRole    string
	ActorUserID  string
	TargetUserID string
}

// ValidateRemoval checks that an admin may remove the target user. The last admin cannot be removed.
func ValidateRemoval(ctx context.Context, db *gorm.DB, params ValidateRemovalParams) (*domain.User, error) {
	if params.ActorRole != constants.Admin {
		return nil, ErrOnlyAdminsCanRemoveUsers
	}
	if params.ActorUserID == params.TargetUserID {
		return nil, ErrUsersCannotRemoveThemself
	}
	target, err := findTarget(ctx, db, params.TargetUserID)
	if err != nil {
		return nil, err
	}
	if target.Role == constants.Admin {
		if err := requireAnotherAdmin(ctx, db); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func findTarget(ctx context.Context, db *gorm.DB, userID string) (*domain.User, error) {
	var target domain.User
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	return &target, nil
}

func requireAnotherAdmin(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("role = ?", constants.Admin).Count(&count).Error; err != nil {
		return err
	}
	if count <= 1 {
		return ErrMustHaveAtLeastOneAdmin
	}
	return nil
}
