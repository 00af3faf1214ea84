package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kojileo/datebank/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResourceKind names the kind of record an access check is about.
type ResourceKind string

const (
	KindTenant ResourceKind = "tenant"
	KindPlace  ResourceKind = "place"
)

// Access decides whether a user may operate on a tenant or a place. The only
// rule is membership, and a denial is always reported as ErrNotFound so that
// callers cannot probe for records belonging to other tenants.
type Access struct {
	db *gorm.DB
}

func NewAccess(db *gorm.DB) *Access {
	return &Access{db: db}
}

// WithTx returns an Access bound to the given transaction.
func (a *Access) WithTx(tx *gorm.DB) *Access {
	return &Access{db: tx}
}

// Authorize re-reads membership on every call; nothing is cached.
func (a *Access) Authorize(ctx context.Context, userID uint, kind ResourceKind, id uint) error {
	db := a.db.WithContext(ctx)
	switch kind {
	case KindTenant:
		return authorizeTenant(db, userID, id)
	case KindPlace:
		var count int64
		err := db.Model(&model.Place{}).
			Where("id = ? AND tenant_id IN (?)", id, memberTenantIDs(db, userID)).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("authorize place: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	default:
		return fmt.Errorf("authorize: unknown resource kind %q", kind)
	}
}

// memberTenantIDs is the sub-query every tenant-scoped statement embeds, so
// the membership check runs in the same statement as the read or write.
func memberTenantIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&model.UserTenant{}).Select("tenant_id").Where("user_id = ?", userID)
}

// authorizeTenant share-locks the membership row (and its live tenant) for the
// rest of the enclosing transaction. sqlite ignores the locking clause.
func authorizeTenant(db *gorm.DB, userID, tenantID uint) error {
	var membership model.UserTenant
	err := db.Model(&model.UserTenant{}).
		Select("user_tenants.user_id, user_tenants.tenant_id").
		Joins("JOIN tenants ON tenants.id = user_tenants.tenant_id AND tenants.deleted_at IS NULL").
		Where("user_tenants.user_id = ? AND user_tenants.tenant_id = ?", userID, tenantID).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Take(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("authorize tenant: %w", err)
	}
	return nil
}
