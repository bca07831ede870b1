package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DeadlineListener listens for Redis keyspace notifications on expired
// deadline keys and triggers phase resolution when a game's deadline passes.
type DeadlineListener struct {
	rdb *redis.Client
	svc *GameService
}

// NewDeadlineListener creates a DeadlineListener.
func NewDeadlineListener(rdb *redis.Client, svc *GameService) *DeadlineListener {
	return &DeadlineListener{rdb: rdb, svc: svc}
}

// Start subscribes to keyspace notifications for expired keys and blocks
// until the context is cancelled. Requires notify-keyspace-events Ex.
func (l *DeadlineListener) Start(ctx context.Context) {
	pubsub := l.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Deadline listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.handleExpiry(ctx, msg.Payload)
		}
	}
}

// handleExpiry processes an expired key. Only acts on game deadline keys.
func (l *DeadlineListener) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "game:") || !strings.HasSuffix(key, ":deadline") {
		return
	}

	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return
	}
	gameID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	log.Info().Int64("game_id", gameID).Msg("Deadline expired, triggering phase resolution")
	if err := l.svc.ResolvePhase(ctx, gameID); err != nil {
		log.Error().Err(err).Int64("game_id", gameID).Msg("Phase resolution failed after deadline expiry")
	}
}
