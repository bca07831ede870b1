package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mveit/entente/internal/model"
)

// GameRepo stores serialized game documents in the games table.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new game document and returns the minted id.
func (r *GameRepo) Create(ctx context.Context, doc json.RawMessage) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (doc) VALUES ($1) RETURNING id`, doc,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	return id, nil
}

// Load returns a game record, or nil when the game does not exist or was
// deleted.
func (r *GameRepo) Load(ctx context.Context, id int64) (*model.GameRecord, error) {
	var rec model.GameRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, doc, active, created_at, updated_at FROM games WHERE id = $1 AND active`, id,
	).Scan(&rec.ID, &rec.Doc, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return &rec, nil
}

// Save replaces a game's document.
func (r *GameRepo) Save(ctx context.Context, id int64, doc json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET doc = $1, updated_at = now() WHERE id = $2 AND active`, doc, id,
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save game: no active game %d", id)
	}
	return nil
}

// ListActive returns every live game record.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.GameRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doc, active, created_at, updated_at FROM games WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	defer rows.Close()

	var recs []model.GameRecord
	for rows.Next() {
		var rec model.GameRecord
		if err := rows.Scan(&rec.ID, &rec.Doc, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkDeleted hides a game from loads and listings without dropping the row.
func (r *GameRepo) MarkDeleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET active = FALSE, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("mark game deleted: %w", err)
	}
	return nil
}
