// Package service coordinates the game engine with the stores: every
// operation on a game runs load, mutate, persist under that game's lock.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mveit/entente/internal/logger"
	"github.com/mveit/entente/internal/model"
	"github.com/mveit/entente/internal/repository"
	"github.com/mveit/entente/pkg/dipmap"
	"github.com/mveit/entente/pkg/engine"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrMapNotFound  = errors.New("map not found")
	ErrNotInGame    = errors.New("you are not in this game")
	ErrGameOver     = errors.New("game is over")
)

// Deadlines holds the per-phase submission windows.
type Deadlines struct {
	Move    time.Duration
	Retreat time.Duration
	Build   time.Duration
}

// GameService handles game lifecycle operations.
type GameService struct {
	store     repository.GameStore
	cache     repository.GameCache
	maps      map[string]*dipmap.Map
	deadlines Deadlines
	broadcast Broadcaster
	locks     sync.Map
}

// NewGameService creates a GameService.
func NewGameService(store repository.GameStore, cache repository.GameCache, maps map[string]*dipmap.Map, deadlines Deadlines, broadcast Broadcaster) *GameService {
	if broadcast == nil {
		broadcast = NoopBroadcaster{}
	}
	return &GameService{store: store, cache: cache, maps: maps, deadlines: deadlines, broadcast: broadcast}
}

// MapNames returns the names of the available boards, sorted.
func (s *GameService) MapNames() []string {
	names := make([]string, 0, len(s.maps))
	for name := range s.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a board by name, or nil.
func (s *GameService) Map(name string) *dipmap.Map {
	return s.maps[name]
}

func (s *GameService) gameLock(id int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// withGame runs fn against a loaded game under the game's lock and persists
// the mutated document afterwards.
func (s *GameService) withGame(ctx context.Context, id int64, fn func(g *engine.Game) error) error {
	mu := s.gameLock(id)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadLocked(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(g); err != nil {
		return err
	}
	doc, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, id, doc)
}

// loadLocked loads and decodes a game. The caller holds the game lock.
func (s *GameService) loadLocked(ctx context.Context, id int64) (*engine.Game, error) {
	rec, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrGameNotFound
	}
	base := s.maps[gameMapName(rec.Doc)]
	if base == nil {
		return nil, ErrMapNotFound
	}
	return engine.LoadGame(rec.Doc, base)
}

func gameMapName(doc json.RawMessage) string {
	var probe struct {
		Map string `json:"map"`
	}
	_ = json.Unmarshal(doc, &probe)
	return probe.Map
}

// CreateGame creates a game on the named board for the given users.
func (s *GameService) CreateGame(ctx context.Context, name, mapName string, users []string) (*engine.Game, error) {
	base := s.maps[mapName]
	if base == nil {
		return nil, ErrMapNotFound
	}
	g, err := engine.NewGame(0, name, mapName, base, users)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	g.ID = id
	doc, err = json.Marshal(g)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, id, doc); err != nil {
		return nil, err
	}
	logger.Get().Info().Int64("game_id", id).Str("map", mapName).Int("users", len(users)).Msg("Game created")
	return g, nil
}

// GetGame returns a game sanitized for the viewing user.
func (s *GameService) GetGame(ctx context.Context, id int64, viewer string) (*engine.Game, error) {
	mu := s.gameLock(id)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Sanitized(viewer), nil
}

// ListGames returns summaries of every live game.
func (s *GameService) ListGames(ctx context.Context) ([]model.GameSummary, error) {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.GameSummary, 0, len(recs))
	for _, rec := range recs {
		base := s.maps[gameMapName(rec.Doc)]
		if base == nil {
			logger.Get().Warn().Int64("game_id", rec.ID).Msg("Skipping game with unknown map")
			continue
		}
		g, err := engine.LoadGame(rec.Doc, base)
		if err != nil {
			logger.Get().Warn().Err(err).Int64("game_id", rec.ID).Msg("Skipping unreadable game document")
			continue
		}
		sum := model.GameSummary{
			ID:      g.ID,
			Name:    g.Name,
			Map:     g.MapName,
			Phase:   string(g.Phase),
			Won:     string(g.Won),
			Winner:  g.Winner,
			Users:   g.Users,
			Players: g.Players,
		}
		if deadline, err := s.cache.GetDeadline(ctx, g.ID); err == nil {
			sum.Deadline = deadline
		}
		if votes, err := s.cache.DrawVotes(ctx, g.ID); err == nil {
			sum.DrawVotes = votes
		}
		if ready, err := s.cache.ReadyCountries(ctx, g.ID); err == nil {
			sum.Ready = ready
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// DeleteGame hides a game. Any participating user can delete it.
func (s *GameService) DeleteGame(ctx context.Context, id int64, user string) error {
	err := s.withGame(ctx, id, func(g *engine.Game) error {
		if len(g.CountriesOf(user)) == 0 {
			return ErrNotInGame
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.store.MarkDeleted(ctx, id); err != nil {
		return err
	}
	if err := s.cache.DeleteGameData(ctx, id); err != nil {
		logger.Get().Warn().Err(err).Int64("game_id", id).Msg("Failed to clear cache for deleted game")
	}
	return nil
}

// ClaimCountry assigns a country to a user during the claiming phase. When
// the last country is claimed the first movement deadline starts.
func (s *GameService) ClaimCountry(ctx context.Context, id int64, user, country string) (*engine.Game, error) {
	var view *engine.Game
	var started bool
	err := s.withGame(ctx, id, func(g *engine.Game) error {
		if err := g.ClaimCountry(user, country); err != nil {
			return err
		}
		started = g.Phase == engine.OrderWriting
		view = g.Sanitized(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if started {
		s.startDeadline(ctx, id, engine.OrderWriting)
		s.broadcast.BroadcastGameEvent(id, "game_started", nil)
	}
	return view, nil
}

// SubmitOrders records a batch of submissions for the user. Each entry is
// dispatched to the submission channel matching the current phase.
func (s *GameService) SubmitOrders(ctx context.Context, id int64, user string, orders []*engine.Order) error {
	return s.withGame(ctx, id, func(g *engine.Game) error {
		if g.Won != engine.Playing {
			return ErrGameOver
		}
		for _, o := range orders {
			var err error
			switch g.Phase {
			case engine.OrderWriting:
				err = g.SubmitOrder(user, o)
			case engine.Retreating:
				err = g.SubmitRetreat(user, o)
			case engine.CreatingDisbanding:
				err = g.SubmitAdjustment(user, o)
			default:
				err = errInvalidPhase()
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func errInvalidPhase() error {
	return &engine.Error{Kind: engine.InvalidState, Message: "no submissions are open"}
}

// MarkReady marks all of a user's countries ready. When every country still
// owing a submission is ready the phase resolves immediately.
func (s *GameService) MarkReady(ctx context.Context, id int64, user string) error {
	mu := s.gameLock(id)
	mu.Lock()
	g, err := s.loadLocked(ctx, id)
	if err != nil {
		mu.Unlock()
		return err
	}
	countries := g.CountriesOf(user)
	if len(countries) == 0 {
		mu.Unlock()
		return ErrNotInGame
	}
	for _, c := range countries {
		if err := s.cache.MarkReady(ctx, id, c); err != nil {
			mu.Unlock()
			return err
		}
	}
	pending := pendingCountries(g)
	mu.Unlock()

	ready, err := s.cache.ReadyCountries(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range pending {
		if !contains(ready, c) {
			return nil
		}
	}
	return s.ResolvePhase(ctx, id)
}

// UnmarkReady clears the ready marks for all of a user's countries.
func (s *GameService) UnmarkReady(ctx context.Context, id int64, user string) error {
	mu := s.gameLock(id)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadLocked(ctx, id)
	if err != nil {
		return err
	}
	countries := g.CountriesOf(user)
	if len(countries) == 0 {
		return ErrNotInGame
	}
	for _, c := range countries {
		if err := s.cache.UnmarkReady(ctx, id, c); err != nil {
			return err
		}
	}
	return nil
}

// VoteDraw records a draw vote for all of a user's countries. When every
// live country has voted the game ends drawn.
func (s *GameService) VoteDraw(ctx context.Context, id int64, user string) error {
	mu := s.gameLock(id)
	mu.Lock()
	g, err := s.loadLocked(ctx, id)
	if err != nil {
		mu.Unlock()
		return err
	}
	countries := g.CountriesOf(user)
	if len(countries) == 0 {
		mu.Unlock()
		return ErrNotInGame
	}
	for _, c := range countries {
		if err := s.cache.AddDrawVote(ctx, id, c); err != nil {
			mu.Unlock()
			return err
		}
	}
	live := liveCountries(g)
	mu.Unlock()

	votes, err := s.cache.DrawVotes(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range live {
		if !contains(votes, c) {
			return nil
		}
	}
	if err := s.withGame(ctx, id, func(g *engine.Game) error {
		g.SetDrawn()
		return nil
	}); err != nil {
		return err
	}
	if err := s.cache.DeleteGameData(ctx, id); err != nil {
		logger.Get().Warn().Err(err).Int64("game_id", id).Msg("Failed to clear cache after draw")
	}
	s.broadcast.BroadcastGameEvent(id, "game_drawn", nil)
	return nil
}

// UnvoteDraw withdraws the draw votes of a user's countries.
func (s *GameService) UnvoteDraw(ctx context.Context, id int64, user string) error {
	mu := s.gameLock(id)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadLocked(ctx, id)
	if err != nil {
		return err
	}
	countries := g.CountriesOf(user)
	if len(countries) == 0 {
		return ErrNotInGame
	}
	for _, c := range countries {
		if err := s.cache.RemoveDrawVote(ctx, id, c); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePhase closes the current phase, adjudicates it and starts the next
// deadline. Called by the deadline listener and by the ready shortcut.
func (s *GameService) ResolvePhase(ctx context.Context, id int64) error {
	var closed engine.Phase
	var next engine.Phase
	var won engine.WonState
	var winner string
	err := s.withGame(ctx, id, func(g *engine.Game) error {
		closed = g.Phase
		var err error
		switch g.Phase {
		case engine.OrderWriting:
			err = g.CalculateOrders()
		case engine.Retreating:
			err = g.CalculateRetreats()
		case engine.CreatingDisbanding:
			err = g.CalculateAdjustments()
		default:
			return errInvalidPhase()
		}
		if err != nil {
			return err
		}
		next = g.Phase
		won = g.Won
		winner = g.Winner
		cur := g.Current()
		logger.Get().Info().
			Int64("game_id", id).
			Str("closed", string(closed)).
			Str("phase", string(next)).
			Int("date", cur.Date).
			Str("season", string(cur.Season)).
			Msg("Phase resolved")
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.cache.ClearPhaseData(ctx, id); err != nil {
		logger.Get().Warn().Err(err).Int64("game_id", id).Msg("Failed to clear phase cache")
	}
	if won != engine.Playing {
		if err := s.cache.DeleteGameData(ctx, id); err != nil {
			logger.Get().Warn().Err(err).Int64("game_id", id).Msg("Failed to clear cache for finished game")
		}
		s.broadcast.BroadcastGameEvent(id, "game_over", map[string]any{"won": string(won), "winner": winner})
		return nil
	}
	s.startDeadline(ctx, id, next)
	s.broadcast.BroadcastGameEvent(id, "phase_resolved", map[string]any{"phase": string(next)})
	return nil
}

// startDeadline stores the next submission deadline in the cache. Key expiry
// drives phase resolution through the deadline listener.
func (s *GameService) startDeadline(ctx context.Context, id int64, phase engine.Phase) {
	var window time.Duration
	switch phase {
	case engine.Retreating:
		window = s.deadlines.Retreat
	case engine.CreatingDisbanding:
		window = s.deadlines.Build
	default:
		window = s.deadlines.Move
	}
	deadline := time.Now().Add(window).UTC()
	if err := s.cache.SetDeadline(ctx, id, deadline); err != nil {
		logger.Get().Error().Err(err).Int64("game_id", id).Msg("Failed to set phase deadline")
		return
	}
	s.broadcast.BroadcastGameEvent(id, "deadline_set", map[string]any{
		"phase":    string(phase),
		"deadline": deadline,
	})
}

// RecoverActiveGames resolves games whose deadline expired while the server
// was down. Games without a running deadline are resolved immediately.
func (s *GameService) RecoverActiveGames(ctx context.Context) error {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		base := s.maps[gameMapName(rec.Doc)]
		if base == nil {
			continue
		}
		g, err := engine.LoadGame(rec.Doc, base)
		if err != nil {
			logger.Get().Warn().Err(err).Int64("game_id", rec.ID).Msg("Skipping unreadable game document during recovery")
			continue
		}
		if g.Won != engine.Playing || g.Phase == engine.CountryClaiming {
			continue
		}
		deadline, err := s.cache.GetDeadline(ctx, g.ID)
		if err != nil {
			return err
		}
		if deadline == nil {
			logger.Get().Info().Int64("game_id", g.ID).Str("phase", string(g.Phase)).Msg("Deadline missing after restart, resolving phase")
			if err := s.ResolvePhase(ctx, g.ID); err != nil {
				logger.Get().Error().Err(err).Int64("game_id", g.ID).Msg("Failed to resolve phase during recovery")
			}
		}
	}
	return nil
}

// pendingCountries returns the countries that still owe a submission in the
// current phase, sorted.
func pendingCountries(g *engine.Game) []string {
	cur := g.Current()
	seen := map[string]bool{}
	switch g.Phase {
	case engine.Retreating:
		for _, d := range cur.Dislodgements {
			seen[d.Unit.Country] = true
		}
	case engine.CreatingDisbanding:
		for name, n := range cur.Nations {
			if !n.Neutral && n.ToBuild != 0 {
				seen[name] = true
			}
		}
	default:
		for name, n := range cur.Nations {
			if !n.Neutral && len(n.Units) > 0 {
				seen[name] = true
			}
		}
	}
	countries := make([]string, 0, len(seen))
	for c := range seen {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}

// liveCountries returns the non-neutral countries that still hold units or
// supply centers.
func liveCountries(g *engine.Game) []string {
	cur := g.Current()
	var countries []string
	for name, n := range cur.Nations {
		if n.Neutral {
			continue
		}
		if len(n.Units) > 0 || len(n.SupplyCenters) > 0 {
			countries = append(countries, name)
		}
	}
	sort.Strings(countries)
	return countries
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
