package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mveit/entente/internal/model"
)

type fakeUserSource struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUserSource) FindByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func TestUserDataSplitsDisplayName(t *testing.T) {
	src := &fakeUserSource{users: map[string]*model.User{
		"u1": {ID: "u1", Provider: "google", DisplayName: "Ada Lovelace King", Email: "ada@example.com"},
	}}
	svc := NewIdentityService(src)

	data, err := svc.UserData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("user data: %v", err)
	}
	if data.Firstname != "Ada" || data.Lastname != "Lovelace King" {
		t.Errorf("want Ada / Lovelace King, got %q / %q", data.Firstname, data.Lastname)
	}
	if data.Email != "ada@example.com" {
		t.Errorf("want email preserved, got %q", data.Email)
	}
	if data.Type != "google" {
		t.Errorf("want type google, got %q", data.Type)
	}
}

func TestUserDataSingleName(t *testing.T) {
	src := &fakeUserSource{users: map[string]*model.User{
		"u1": {ID: "u1", DisplayName: "Cher"},
	}}
	data, err := NewIdentityService(src).UserData(context.Background(), "u1")
	if err != nil {
		t.Fatalf("user data: %v", err)
	}
	if data.Firstname != "Cher" || data.Lastname != "" {
		t.Errorf("want Cher / empty, got %q / %q", data.Firstname, data.Lastname)
	}
}

func TestUserDataUnknownUser(t *testing.T) {
	svc := NewIdentityService(&fakeUserSource{users: map[string]*model.User{}})
	data, err := svc.UserData(context.Background(), "nope")
	if err != nil {
		t.Fatalf("user data: %v", err)
	}
	if data != nil {
		t.Errorf("unknown user should yield nil, got %+v", data)
	}
}

func TestUserHasAppPermission(t *testing.T) {
	src := &fakeUserSource{users: map[string]*model.User{
		"u1": {ID: "u1", DisplayName: "Ada"},
	}}
	svc := NewIdentityService(src)
	ctx := context.Background()

	ok, err := svc.UserHasAppPermission(ctx, "u1", AppName)
	if err != nil || !ok {
		t.Errorf("registered user should have permission, got %v %v", ok, err)
	}
	ok, err = svc.UserHasAppPermission(ctx, "nope", AppName)
	if err != nil || ok {
		t.Errorf("unknown user should be denied, got %v %v", ok, err)
	}
	ok, err = svc.UserHasAppPermission(ctx, "u1", "other-app")
	if err != nil || ok {
		t.Errorf("unknown app should be denied, got %v %v", ok, err)
	}
}

func TestRequirePermission(t *testing.T) {
	src := &fakeUserSource{users: map[string]*model.User{
		"u1": {ID: "u1", DisplayName: "Ada"},
	}}
	mw := RequirePermission(NewIdentityService(src), AppName)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), userIDKey, "u1"))
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("want 204, got %d", rec.Code)
		}
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), userIDKey, "stranger"))
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("want 403, got %d", rec.Code)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		failing := RequirePermission(NewIdentityService(&fakeUserSource{err: errors.New("db down")}), AppName)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), userIDKey, "u1"))
		rec := httptest.NewRecorder()
		failing(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("want 500, got %d", rec.Code)
		}
	})
}
