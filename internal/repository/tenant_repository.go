package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kojileo/datebank/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantRepository manages tenants and their membership.
type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// WithTx returns a TenantRepository bound to the given transaction.
func (r *TenantRepository) WithTx(tx *gorm.DB) *TenantRepository {
	return &TenantRepository{db: tx}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id ASC")
	})
}

// Create stores a tenant with the acting user as its only member.
func (r *TenantRepository) Create(ctx context.Context, userID uint, name string) (model.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tenant{}, NewValidationError("name", "is required")
	}

	tenant := model.Tenant{Name: name}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.UserTenant{UserID: userID, TenantID: tenant.ID}).Error; err != nil {
			return err
		}
		return preloadMembers(tx).Take(&tenant, tenant.ID).Error
	})
	if err != nil {
		return model.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, nil
}

// List returns exactly the tenants the user is a member of, with members.
func (r *TenantRepository) List(ctx context.Context, userID uint) ([]model.Tenant, error) {
	db := r.db.WithContext(ctx)
	tenants := []model.Tenant{}
	err := preloadMembers(db).
		Where("id IN (?)", memberTenantIDs(db, userID)).
		Order("created_at ASC").Order("id ASC").
		Find(&tenants).Error
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// Get returns a tenant the user is a member of.
func (r *TenantRepository) Get(ctx context.Context, userID, tenantID uint) (model.Tenant, error) {
	db := r.db.WithContext(ctx)
	var tenant model.Tenant
	err := preloadMembers(db).
		Where("id = ? AND id IN (?)", tenantID, memberTenantIDs(db, userID)).
		Take(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Tenant{}, ErrNotFound
	}
	if err != nil {
		return model.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

// Delete removes a tenant on behalf of any one of its members, together with
// its places and memberships. It returns the number of places removed.
func (r *TenantRepository) Delete(ctx context.Context, userID, tenantID uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND id IN (?)", tenantID, memberTenantIDs(tx, userID)).Delete(&model.Tenant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		res = tx.Where("tenant_id = ?", tenantID).Delete(&model.Place{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Where("tenant_id = ?", tenantID).Delete(&model.UserTenant{}).Error
	})
	if errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("delete tenant: %w", err)
	}
	return removed, nil
}

// AddMember inserts a membership unless it already exists. added is false for
// an existing member; the relation is never duplicated.
func (r *TenantRepository) AddMember(ctx context.Context, tenantID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserTenant{UserID: userID, TenantID: tenantID})
	if res.Error != nil {
		return false, fmt.Errorf("add member: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// IsMember reports whether the user belongs to the tenant.
func (r *TenantRepository) IsMember(ctx context.Context, tenantID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserTenant{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// CountMembers returns the size of a tenant's member set.
func (r *TenantRepository) CountMembers(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserTenant{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// Leave removes the acting user's own membership. The last member cannot
// leave; the tenant has to be deleted instead.
func (r *TenantRepository) Leave(ctx context.Context, userID, tenantID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []model.UserTenant
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ?", tenantID).
			Find(&members).Error
		if err != nil {
			return err
		}

		found := false
		for _, m := range members {
			if m.UserID == userID {
				found = true
				break
			}
		}
		if !found {
			return ErrNotFound
		}
		if len(members) == 1 {
			return ErrLastMember
		}

		return tx.Where("tenant_id = ? AND user_id = ?", tenantID, userID).Delete(&model.UserTenant{}).Error
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrLastMember) {
		return err
	}
	if err != nil {
		return fmt.Errorf("leave tenant: %w", err)
	}
	return nil
}
