// Package repository defines the persistence contracts the service layer
// consumes. Postgres holds the durable game documents and users; Redis
// holds the volatile per-phase data: deadlines, ready marks, draw votes.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mveit/entente/internal/model"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, email, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameStore defines durable game document operations.
type GameStore interface {
	Create(ctx context.Context, doc json.RawMessage) (int64, error)
	Load(ctx context.Context, id int64) (*model.GameRecord, error)
	Save(ctx context.Context, id int64, doc json.RawMessage) error
	ListActive(ctx context.Context) ([]model.GameRecord, error)
	MarkDeleted(ctx context.Context, id int64) error
}

// GameCache defines live per-phase operations (Redis).
type GameCache interface {
	SetDeadline(ctx context.Context, gameID int64, deadline time.Time) error
	GetDeadline(ctx context.Context, gameID int64) (*time.Time, error)
	ClearDeadline(ctx context.Context, gameID int64) error
	MarkReady(ctx context.Context, gameID int64, country string) error
	UnmarkReady(ctx context.Context, gameID int64, country string) error
	ReadyCountries(ctx context.Context, gameID int64) ([]string, error)
	AddDrawVote(ctx context.Context, gameID int64, country string) error
	RemoveDrawVote(ctx context.Context, gameID int64, country string) error
	DrawVotes(ctx context.Context, gameID int64) ([]string, error)
	ClearPhaseData(ctx context.Context, gameID int64) error
	DeleteGameData(ctx context.Context, gameID int64) error
}
