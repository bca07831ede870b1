// Package model holds the data types shared between the repository,
// service, and handler layers.
package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GameRecord is a stored game: the engine's serialized document plus the
// row metadata the store keeps alongside it.
type GameRecord struct {
	ID        int64           `json:"id"`
	Doc       json.RawMessage `json:"doc"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GameSummary is the list-view projection of a game.
type GameSummary struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Map       string            `json:"map"`
	Phase     string            `json:"phase"`
	Won       string            `json:"won"`
	Winner    string            `json:"winner,omitempty"`
	Users     []string          `json:"users"`
	Players   map[string]string `json:"players"`
	Deadline  *time.Time        `json:"deadline,omitempty"`
	DrawVotes []string          `json:"draw_votes,omitempty"`
	Ready     []string          `json:"ready,omitempty"`
}
