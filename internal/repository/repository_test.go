package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kojileo/datebank/internal/dbtest"
	"github.com/kojileo/datebank/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	access  *Access
	users   *UserRepository
	tenants *TenantRepository
	places  *PlaceRepository
}

func newFixture(t *testing.T) fixture {
	db := dbtest.Open(t)
	return fixture{
		db:      db,
		access:  NewAccess(db),
		users:   NewUserRepository(db),
		tenants: NewTenantRepository(db),
		places:  NewPlaceRepository(db),
	}
}

func TestCreateTenantAddsCreatorAsSoleMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")

	tenant, err := f.tenants.Create(ctx, alice.ID, "  Couple1 ")
	require.NoError(t, err)

	assert.Equal(t, "Couple1", tenant.Name)
	require.Len(t, tenant.Members, 1)
	assert.Equal(t, alice.ID, tenant.Members[0].ID)

	_, err = f.tenants.Create(ctx, alice.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTenantVisibilityFollowsMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	carol := dbtest.User(t, f.db, "carol@example.com")

	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)
	_, err = f.tenants.Create(ctx, carol.ID, "Other")
	require.NoError(t, err)

	list, err := f.tenants.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tenant.ID, list[0].ID)
	assert.Len(t, list[0].Members, 1)

	_, err = f.tenants.Get(ctx, carol.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.tenants.Get(ctx, carol.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.tenants.Get(ctx, alice.ID, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Couple1", got.Name)

	assert.NoError(t, f.access.Authorize(ctx, alice.ID, KindTenant, tenant.ID))
	assert.ErrorIs(t, f.access.Authorize(ctx, carol.ID, KindTenant, tenant.ID), ErrNotFound)
	assert.ErrorIs(t, f.access.Authorize(ctx, carol.ID, KindTenant, 9999), ErrNotFound)
}

func TestPlaceAccessRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	carol := dbtest.User(t, f.db, "carol@example.com")

	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	place, err := f.places.Create(ctx, alice.ID, tenant.ID, model.PlaceInput{Name: "Aquarium"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, place.UserID)
	assert.Equal(t, tenant.ID, place.TenantID)

	_, err = f.places.Create(ctx, carol.ID, tenant.ID, model.PlaceInput{Name: "Intruder"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.places.List(ctx, carol.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.places.Get(ctx, carol.ID, place.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.places.Update(ctx, carol.ID, place.ID, model.PlacePatch{Name: model.Some("Hijacked")})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.access.Authorize(ctx, carol.ID, KindPlace, place.ID), ErrNotFound)
	assert.NoError(t, f.access.Authorize(ctx, alice.ID, KindPlace, place.ID))

	// a foreign place and a missing place fail the same way
	assert.ErrorIs(t, f.places.Delete(ctx, carol.ID, place.ID), ErrNotFound)
	assert.ErrorIs(t, f.places.Delete(ctx, carol.ID, place.ID+1000), ErrNotFound)

	got, err := f.places.Get(ctx, alice.ID, place.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aquarium", got.Name)
}

func TestCreatePlaceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	_, err = f.places.Create(ctx, alice.ID, tenant.ID, model.PlaceInput{Name: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = f.places.Create(ctx, alice.ID, 0, model.PlaceInput{Name: "Park"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tenant_id")
}

func TestListPlacesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		p := model.Place{Name: name, TenantID: tenant.ID, UserID: alice.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, f.db.Create(&p).Error)
	}
	// same timestamp as "third": the later insert wins
	tie := model.Place{Name: "fourth", TenantID: tenant.ID, UserID: alice.ID, CreatedAt: base.Add(2 * time.Hour)}
	require.NoError(t, f.db.Create(&tie).Error)

	places, err := f.places.List(ctx, alice.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, places, 4)

	names := make([]string, 0, len(places))
	for i, p := range places {
		names = append(names, p.Name)
		if i > 0 {
			assert.False(t, p.CreatedAt.After(places[i-1].CreatedAt), "created_at must not increase")
		}
	}
	assert.Equal(t, []string{"fourth", "third", "second", "first"}, names)
}

func TestUpdatePlaceIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	place, err := f.places.Create(ctx, alice.ID, tenant.ID, model.PlaceInput{
		Name:        "Aquarium",
		Description: "jellyfish",
		Address:     "Bay Street 1",
	})
	require.NoError(t, err)

	updated, err := f.places.Update(ctx, alice.ID, place.ID, model.PlacePatch{Address: model.Some("Pier 39")})
	require.NoError(t, err)
	assert.Equal(t, "Aquarium", updated.Name)
	assert.Equal(t, "jellyfish", updated.Description)
	assert.Equal(t, "Pier 39", updated.Address)

	_, err = f.places.Update(ctx, alice.ID, place.ID, model.PlacePatch{Name: model.Some("")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.places.Update(ctx, alice.ID, place.ID+1000, model.PlacePatch{Name: model.Some("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePlaceClearsOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	visit := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	place, err := f.places.Create(ctx, alice.ID, tenant.ID, model.PlaceInput{
		Name:        "Aquarium",
		Description: "fish",
		Address:     "Bay Street 1",
		VisitDate:   &visit,
	})
	require.NoError(t, err)
	require.NotNil(t, place.VisitDate)

	updated, err := f.places.Update(ctx, alice.ID, place.ID, model.PlacePatch{
		VisitDate:   model.Null[time.Time](),
		Description: model.Null[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.VisitDate)
	assert.Empty(t, updated.Description)
	assert.Equal(t, "Bay Street 1", updated.Address)

	stored, err := f.places.Get(ctx, alice.ID, place.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VisitDate)

	_, err = f.places.Update(ctx, alice.ID, place.ID, model.PlacePatch{Name: model.Null[string]()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeletePlaceTwiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)
	place, err := f.places.Create(ctx, alice.ID, tenant.ID, model.PlaceInput{Name: "Aquarium"})
	require.NoError(t, err)

	require.NoError(t, f.places.Delete(ctx, alice.ID, place.ID))
	assert.ErrorIs(t, f.places.Delete(ctx, alice.ID, place.ID), ErrNotFound)

	places, err := f.places.List(ctx, alice.ID, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestDeleteTenantCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	bob := dbtest.User(t, f.db, "bob@example.com")
	carol := dbtest.User(t, f.db, "carol@example.com")

	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)
	added, err := f.tenants.AddMember(ctx, tenant.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, added)
	place, err := f.places.Create(ctx, bob.ID, tenant.ID, model.PlaceInput{Name: "Aquarium"})
	require.NoError(t, err)

	_, err = f.tenants.Delete(ctx, carol.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// any single member may delete the shared tenant
	removed, err := f.tenants.Delete(ctx, bob.ID, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = f.tenants.Get(ctx, alice.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.places.Get(ctx, alice.ID, place.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := f.tenants.CountMembers(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.tenants.Delete(ctx, alice.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	bob := dbtest.User(t, f.db, "bob@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	added, err := f.tenants.AddMember(ctx, tenant.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.tenants.AddMember(ctx, tenant.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, added)

	count, err := f.tenants.CountMembers(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	member, err := f.tenants.IsMember(ctx, tenant.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestLeaveTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := dbtest.User(t, f.db, "alice@example.com")
	bob := dbtest.User(t, f.db, "bob@example.com")
	carol := dbtest.User(t, f.db, "carol@example.com")
	tenant, err := f.tenants.Create(ctx, alice.ID, "Couple1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.tenants.Leave(ctx, alice.ID, tenant.ID), ErrLastMember)
	assert.ErrorIs(t, f.tenants.Leave(ctx, carol.ID, tenant.ID), ErrNotFound)

	_, err = f.tenants.AddMember(ctx, tenant.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.tenants.Leave(ctx, alice.ID, tenant.ID))

	_, err = f.tenants.Get(ctx, alice.ID, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := f.tenants.Get(ctx, bob.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 1)
	assert.Equal(t, bob.ID, got.Members[0].ID)
}

func TestResolveSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.users.ResolveSignIn(ctx, Identity{Email: " Alice@Example.com ", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", first.Email)
	assert.True(t, first.Verified())

	again, err := f.users.ResolveSignIn(ctx, Identity{Email: "alice@example.com", Image: "https://img/a.png"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Alice", again.Name)
	assert.Equal(t, "https://img/a.png", again.Image)

	_, err = f.users.ResolveSignIn(ctx, Identity{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProvisionThenSignInVerifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invited, created, err := f.users.Provision(ctx, "B@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, invited.Verified())

	same, created, err := f.users.Provision(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, invited.ID, same.ID)

	signedIn, err := f.users.ResolveSignIn(ctx, Identity{Email: "b@example.com", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, invited.ID, signedIn.ID)
	assert.True(t, signedIn.Verified())

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"url": "must be a valid URL", "name": "is required"}}
	assert.Equal(t, "validation failed: name: is required, url: must be a valid URL", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}
