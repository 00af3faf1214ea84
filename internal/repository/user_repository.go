package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kojileo/datebank/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Identity is what the identity provider vouches for after a sign-in.
type Identity struct {
	Email string
	Name  string
	Image string
}

// UserRepository resolves and provisions users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a UserRepository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResolveSignIn returns the user for a verified identity, creating it on the
// first sign-in. A user provisioned by an invite becomes verified here.
func (r *UserRepository) ResolveSignIn(ctx context.Context, id Identity) (model.User, error) {
	email := NormalizeEmail(id.Email)
	if email == "" {
		return model.User{}, NewValidationError("email", "is required")
	}

	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		candidate := model.User{Email: email, Name: id.Name, Image: id.Image, EmailVerifiedAt: &now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			user = candidate
			return nil
		}

		if err := tx.Where("email = ?", email).Take(&user).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if user.EmailVerifiedAt == nil {
			updates["email_verified_at"] = now
			user.EmailVerifiedAt = &now
		}
		if id.Name != "" && id.Name != user.Name {
			updates["name"] = id.Name
			user.Name = id.Name
		}
		if id.Image != "" && id.Image != user.Image {
			updates["image"] = id.Image
			user.Image = id.Image
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return model.User{}, fmt.Errorf("resolve sign-in: %w", err)
	}
	return user, nil
}

// Provision returns the user with the given email, creating an unverified
// record when none exists. created reports whether a record was inserted.
func (r *UserRepository) Provision(ctx context.Context, email string) (user model.User, created bool, err error) {
	email = NormalizeEmail(email)
	if email == "" {
		return model.User{}, false, NewValidationError("email", "is required")
	}

	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.User{Email: email})
	if res.Error != nil {
		return model.User{}, false, fmt.Errorf("provision user: %w", res.Error)
	}
	if err := db.Where("email = ?", email).Take(&user).Error; err != nil {
		return model.User{}, false, fmt.Errorf("provision user: %w", err)
	}
	return user, res.RowsAffected == 1, nil
}

// Get returns a user by id.
func (r *UserRepository) Get(ctx context.Context, id uint) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
