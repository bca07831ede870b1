package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for per-game phase data.
func deadlineKey(gameID int64) string { return "game:" + strconv.FormatInt(gameID, 10) + ":deadline" }
func readyKey(gameID int64) string    { return "game:" + strconv.FormatInt(gameID, 10) + ":ready" }
func drawVoteKey(gameID int64) string {
	return "game:" + strconv.FormatInt(gameID, 10) + ":draw_votes"
}

// deadlineGracePeriod is the extra time after the displayed deadline before
// the expiry fires, giving players a few seconds of leeway.
const deadlineGracePeriod = 5 * time.Second

// SetDeadline stores the phase deadline as a key with a TTL. When the key
// expires, keyspace notifications trigger phase resolution.
func (c *Client) SetDeadline(ctx context.Context, gameID int64, deadline time.Time) error {
	ttl := time.Until(deadline) + deadlineGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, deadlineKey(gameID), deadline.Unix(), ttl).Err()
}

// GetDeadline returns the stored deadline, or nil when none is running.
func (c *Client) GetDeadline(ctx context.Context, gameID int64) (*time.Time, error) {
	val, err := c.rdb.Get(ctx, deadlineKey(gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get deadline: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse deadline: %w", err)
	}
	t := time.Unix(unix, 0).UTC()
	return &t, nil
}

// ClearDeadline removes the deadline for a game.
func (c *Client) ClearDeadline(ctx context.Context, gameID int64) error {
	return c.rdb.Del(ctx, deadlineKey(gameID)).Err()
}

// MarkReady adds a country to the game's ready set.
func (c *Client) MarkReady(ctx context.Context, gameID int64, country string) error {
	return c.rdb.SAdd(ctx, readyKey(gameID), country).Err()
}

// UnmarkReady removes a country from the ready set.
func (c *Client) UnmarkReady(ctx context.Context, gameID int64, country string) error {
	return c.rdb.SRem(ctx, readyKey(gameID), country).Err()
}

// ReadyCountries returns the countries that have marked ready.
func (c *Client) ReadyCountries(ctx context.Context, gameID int64) ([]string, error) {
	return c.rdb.SMembers(ctx, readyKey(gameID)).Result()
}

// AddDrawVote adds a country to the draw vote set.
func (c *Client) AddDrawVote(ctx context.Context, gameID int64, country string) error {
	return c.rdb.SAdd(ctx, drawVoteKey(gameID), country).Err()
}

// RemoveDrawVote removes a country from the draw vote set.
func (c *Client) RemoveDrawVote(ctx context.Context, gameID int64, country string) error {
	return c.rdb.SRem(ctx, drawVoteKey(gameID), country).Err()
}

// DrawVotes returns the countries that have voted for a draw.
func (c *Client) DrawVotes(ctx context.Context, gameID int64) ([]string, error) {
	return c.rdb.SMembers(ctx, drawVoteKey(gameID)).Result()
}

// ClearPhaseData removes ready marks and the deadline after a phase
// resolves. Draw votes persist across phases.
func (c *Client) ClearPhaseData(ctx context.Context, gameID int64) error {
	return c.rdb.Del(ctx, readyKey(gameID), deadlineKey(gameID)).Err()
}

// DeleteGameData removes every cache key for a game.
func (c *Client) DeleteGameData(ctx context.Context, gameID int64) error {
	return c.rdb.Del(ctx, readyKey(gameID), deadlineKey(gameID), drawVoteKey(gameID)).Err()
}
