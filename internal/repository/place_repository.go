package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kojileo/datebank/internal/model"
	"gorm.io/gorm"
)

// PlaceRepository stores places. Every method filters through the acting
// user's tenant memberships.
type PlaceRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// List returns the tenant's places, newest first.
func (r *PlaceRepository) List(ctx context.Context, userID, tenantID uint) ([]model.Place, error) {
	places := []model.Place{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := authorizeTenant(tx, userID, tenantID); err != nil {
			return err
		}
		return tx.Where("tenant_id = ?", tenantID).
			Order("created_at DESC").Order("id DESC").
			Find(&places).Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	return places, nil
}

// Get returns a single place visible to the user.
func (r *PlaceRepository) Get(ctx context.Context, userID, placeID uint) (model.Place, error) {
	db := r.db.WithContext(ctx)
	var place model.Place
	err := db.Where("id = ? AND tenant_id IN (?)", placeID, memberTenantIDs(db, userID)).Take(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Place{}, ErrNotFound
	}
	if err != nil {
		return model.Place{}, fmt.Errorf("get place: %w", err)
	}
	return place, nil
}

// Create stores a place in a tenant the user belongs to, recording the user
// as its creator.
func (r *PlaceRepository) Create(ctx context.Context, userID, tenantID uint, in model.PlaceInput) (model.Place, error) {
	if tenantID == 0 {
		return model.Place{}, NewValidationError("tenant_id", "is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Place{}, NewValidationError("name", "is required")
	}

	place := model.Place{
		Name:        name,
		Description: in.Description,
		Address:     in.Address,
		URL:         in.URL,
		VisitDate:   in.VisitDate,
		TenantID:    tenantID,
		UserID:      userID,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := authorizeTenant(tx, userID, tenantID); err != nil {
			return err
		}
		return tx.Create(&place).Error
	})
	if errors.Is(err, ErrNotFound) {
		return model.Place{}, err
	}
	if err != nil {
		return model.Place{}, fmt.Errorf("create place: %w", err)
	}
	return place, nil
}

// Update applies the supplied fields with one conditional UPDATE whose WHERE
// clause carries the membership check.
func (r *PlaceRepository) Update(ctx context.Context, userID, placeID uint, patch model.PlacePatch) (model.Place, error) {
	cols := patch.Columns()
	if patch.Name.Set {
		name := strings.TrimSpace(patch.Name.Value)
		if !patch.Name.Valid || name == "" {
			return model.Place{}, NewValidationError("name", "must not be empty")
		}
		cols["name"] = name
	}
	cols["updated_at"] = time.Now()

	var place model.Place
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Place{}).
			Where("id = ? AND tenant_id IN (?)", placeID, memberTenantIDs(tx, userID)).
			Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Take(&place, placeID).Error
	})
	if errors.Is(err, ErrNotFound) {
		return model.Place{}, err
	}
	if err != nil {
		return model.Place{}, fmt.Errorf("update place: %w", err)
	}
	return place, nil
}

// Delete removes a place with one conditional DELETE. Missing, already
// deleted and foreign places all yield ErrNotFound.
func (r *PlaceRepository) Delete(ctx context.Context, userID, placeID uint) error {
	db := r.db.WithContext(ctx)
	res := db.Where("id = ? AND tenant_id IN (?)", placeID, memberTenantIDs(db, userID)).Delete(&model.Place{})
	if res.Error != nil {
		return fmt.Errorf("delete place: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
