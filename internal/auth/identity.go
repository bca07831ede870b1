package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mveit/entente/internal/model"
)

// AppName identifies this application to the identity layer.
const AppName = "entente"

// UserData is the profile shape the identity contract exposes.
type UserData struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Type      string `json:"type"`
	Email     string `json:"email"`
}

// userSource is the slice of the user repository the identity service needs.
type userSource interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// IdentityService answers profile and permission lookups for registered
// users.
type IdentityService struct {
	users userSource
}

// NewIdentityService creates an IdentityService over a user source.
func NewIdentityService(users userSource) *IdentityService {
	return &IdentityService{users: users}
}

// UserData returns the profile for a user id, or nil if the user is unknown.
func (s *IdentityService) UserData(ctx context.Context, userID string) (*UserData, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	first, last := splitName(u.DisplayName)
	return &UserData{
		Firstname: first,
		Lastname:  last,
		Type:      u.Provider,
		Email:     u.Email,
	}, nil
}

// UserHasAppPermission reports whether the user may use the named app. Any
// registered user may use this one; unknown apps are always denied.
func (s *IdentityService) UserHasAppPermission(ctx context.Context, userID, app string) (bool, error) {
	if app != AppName {
		return false, nil
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

// RequirePermission gates a handler chain on UserHasAppPermission for the
// authenticated user. Runs after the JWT middleware.
func RequirePermission(identity *IdentityService, app string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			ok, err := identity.UserHasAppPermission(r.Context(), userID, app)
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func splitName(display string) (string, string) {
	first, last, found := strings.Cut(display, " ")
	if !found {
		return display, ""
	}
	return first, last
}
