package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/jwtutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakeValidator struct {
	claims *jwtutil.IdentityClaims
	err    error
}

func (f fakeValidator) ValidateToken(string) (*jwtutil.IdentityClaims, error) {
	return f.claims, f.err
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, id repository.Identity) (model.User, error)
}

func (f fakeResolver) ResolveSignIn(ctx context.Context, id repository.Identity) (model.User, error) {
	return f.resolveFn(ctx, id)
}

func newEcho(v TokenValidator, r UserResolver) *echo.Echo {
	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.GET("/me", func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, user)
	}, AuthMiddleware(v, r))
	return e
}

func serve(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareResolvesUser(t *testing.T) {
	var got repository.Identity
	e := newEcho(
		fakeValidator{claims: &jwtutil.IdentityClaims{Email: "a@example.com", Name: "Alice", Picture: "p"}},
		fakeResolver{resolveFn: func(ctx context.Context, id repository.Identity) (model.User, error) {
			got = id
			return model.User{ID: 7, Email: id.Email}, nil
		}},
	)

	rec := serve(e, "Bearer token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.Identity{Email: "a@example.com", Name: "Alice", Image: "p"}, got)
	assert.Contains(t, rec.Body.String(), `"id":7`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestAuthMiddlewareRejects(t *testing.T) {
	resolver := fakeResolver{resolveFn: func(ctx context.Context, id repository.Identity) (model.User, error) {
		return model.User{ID: 1}, nil
	}}

	e := newEcho(fakeValidator{claims: &jwtutil.IdentityClaims{Email: "a@example.com"}}, resolver)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "Basic abc").Code)

	e = newEcho(fakeValidator{err: errors.New("expired")}, resolver)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "Bearer token").Code)
}

func TestAuthMiddlewareStoreFailure(t *testing.T) {
	e := newEcho(
		fakeValidator{claims: &jwtutil.IdentityClaims{Email: "a@example.com"}},
		fakeResolver{resolveFn: func(ctx context.Context, id repository.Identity) (model.User, error) {
			return model.User{}, errors.New("connection refused")
		}},
	)

	rec := serve(e, "Bearer token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRequestIDIsPropagated(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}
