package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mveit/entente/internal/model"
)

type fakeGameStore struct {
	games  map[int64]*model.GameRecord
	nextID int64
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{games: make(map[int64]*model.GameRecord)}
}

func (f *fakeGameStore) Create(_ context.Context, doc json.RawMessage) (int64, error) {
	f.nextID++
	f.games[f.nextID] = &model.GameRecord{
		ID:     f.nextID,
		Doc:    append(json.RawMessage(nil), doc...),
		Active: true,
	}
	return f.nextID, nil
}

func (f *fakeGameStore) Load(_ context.Context, id int64) (*model.GameRecord, error) {
	rec, ok := f.games[id]
	if !ok || !rec.Active {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeGameStore) Save(_ context.Context, id int64, doc json.RawMessage) error {
	rec, ok := f.games[id]
	if !ok {
		return nil
	}
	rec.Doc = append(json.RawMessage(nil), doc...)
	return nil
}

func (f *fakeGameStore) ListActive(_ context.Context) ([]model.GameRecord, error) {
	var out []model.GameRecord
	for id := int64(1); id <= f.nextID; id++ {
		if rec, ok := f.games[id]; ok && rec.Active {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeGameStore) MarkDeleted(_ context.Context, id int64) error {
	if rec, ok := f.games[id]; ok {
		rec.Active = false
	}
	return nil
}

type fakeGameCache struct {
	deadlines map[int64]time.Time
	ready     map[int64]map[string]bool
	votes     map[int64]map[string]bool
}

func newFakeGameCache() *fakeGameCache {
	return &fakeGameCache{
		deadlines: make(map[int64]time.Time),
		ready:     make(map[int64]map[string]bool),
		votes:     make(map[int64]map[string]bool),
	}
}

func (f *fakeGameCache) SetDeadline(_ context.Context, gameID int64, deadline time.Time) error {
	f.deadlines[gameID] = deadline
	return nil
}

func (f *fakeGameCache) GetDeadline(_ context.Context, gameID int64) (*time.Time, error) {
	d, ok := f.deadlines[gameID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeGameCache) ClearDeadline(_ context.Context, gameID int64) error {
	delete(f.deadlines, gameID)
	return nil
}

func (f *fakeGameCache) MarkReady(_ context.Context, gameID int64, country string) error {
	if f.ready[gameID] == nil {
		f.ready[gameID] = make(map[string]bool)
	}
	f.ready[gameID][country] = true
	return nil
}

func (f *fakeGameCache) UnmarkReady(_ context.Context, gameID int64, country string) error {
	delete(f.ready[gameID], country)
	return nil
}

func (f *fakeGameCache) ReadyCountries(_ context.Context, gameID int64) ([]string, error) {
	return setToList(f.ready[gameID]), nil
}

func (f *fakeGameCache) AddDrawVote(_ context.Context, gameID int64, country string) error {
	if f.votes[gameID] == nil {
		f.votes[gameID] = make(map[string]bool)
	}
	f.votes[gameID][country] = true
	return nil
}

func (f *fakeGameCache) RemoveDrawVote(_ context.Context, gameID int64, country string) error {
	delete(f.votes[gameID], country)
	return nil
}

func (f *fakeGameCache) DrawVotes(_ context.Context, gameID int64) ([]string, error) {
	return setToList(f.votes[gameID]), nil
}

func (f *fakeGameCache) ClearPhaseData(_ context.Context, gameID int64) error {
	delete(f.ready, gameID)
	delete(f.deadlines, gameID)
	return nil
}

func (f *fakeGameCache) DeleteGameData(_ context.Context, gameID int64) error {
	delete(f.ready, gameID)
	delete(f.deadlines, gameID)
	delete(f.votes, gameID)
	return nil
}

func setToList(set map[string]bool) []string {
	var out []string
	for k := range set {
		out = append(out, k)
	}
	return out
}

type broadcastEvent struct {
	GameID int64
	Type   string
	Data   any
}

type recordingBroadcaster struct {
	events []broadcastEvent
}

func (r *recordingBroadcaster) BroadcastGameEvent(gameID int64, eventType string, data any) {
	r.events = append(r.events, broadcastEvent{GameID: gameID, Type: eventType, Data: data})
}

func (r *recordingBroadcaster) has(eventType string) bool {
	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}
