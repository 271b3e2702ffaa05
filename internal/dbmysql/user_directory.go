package dbmysql

import (
	"context"
	"errors"
	"fmt"

	"freelancehub/internal/common"

	"gorm.io/gorm"
)

type userDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) common.UserDirectory {
	return &userDirectory{db: db}
}

func (r *userDirectory) ByID(ctx context.Context, id string) (*common.User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundf("user %s", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.toDomain(), nil
}

// audienceScope applies q as SQL predicates so the audience is evaluated in one query.
func audienceScope(q common.AudienceQuery) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if q.ExcludeBlocked {
			tx = tx.Where("is_blocked = ?", false)
		}
		if len(q.Roles) > 0 {
			tx = tx.Where("role IN ?", roleStrings(q.Roles))
		}
		if len(q.ExcludeRoles) > 0 {
			tx = tx.Where("role NOT IN ?", roleStrings(q.ExcludeRoles))
		}
		return tx.Order("id")
	}
}

func roleStrings(roles []common.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func (r *userDirectory) IDs(ctx context.Context, q common.AudienceQuery) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Scopes(audienceScope(q)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	return ids, nil
}
