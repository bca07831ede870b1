//go:build integration

package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mveit/entente/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return NewClientFromPool(testRDB)
}

func TestDeadlineRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	deadline := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	if err := c.SetDeadline(ctx, 1, deadline); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	got, err := c.GetDeadline(ctx, 1)
	if err != nil {
		t.Fatalf("get deadline: %v", err)
	}
	if got == nil || !got.Equal(deadline) {
		t.Errorf("want %v, got %v", deadline, got)
	}

	ttl, err := testRDB.TTL(ctx, deadlineKey(1)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 55*time.Minute || ttl > time.Hour+time.Minute {
		t.Errorf("the key should expire around the deadline, ttl %v", ttl)
	}

	if err := c.ClearDeadline(ctx, 1); err != nil {
		t.Fatalf("clear deadline: %v", err)
	}
	got, err = c.GetDeadline(ctx, 1)
	if err != nil {
		t.Fatalf("get cleared deadline: %v", err)
	}
	if got != nil {
		t.Errorf("cleared deadline should be nil, got %v", got)
	}
}

func TestGetDeadlineMissing(t *testing.T) {
	c := setup(t)
	got, err := c.GetDeadline(context.Background(), 404)
	if err != nil {
		t.Fatalf("get missing deadline: %v", err)
	}
	if got != nil {
		t.Errorf("missing deadline should be nil, got %v", got)
	}
}

func TestReadySet(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	for _, country := range []string{"france", "germany", "france"} {
		if err := c.MarkReady(ctx, 1, country); err != nil {
			t.Fatalf("mark ready %s: %v", country, err)
		}
	}
	ready, err := c.ReadyCountries(ctx, 1)
	if err != nil {
		t.Fatalf("ready countries: %v", err)
	}
	sort.Strings(ready)
	if len(ready) != 2 || ready[0] != "france" || ready[1] != "germany" {
		t.Errorf("want [france germany], got %v", ready)
	}

	if err := c.UnmarkReady(ctx, 1, "france"); err != nil {
		t.Fatalf("unmark ready: %v", err)
	}
	ready, err = c.ReadyCountries(ctx, 1)
	if err != nil {
		t.Fatalf("ready countries: %v", err)
	}
	if len(ready) != 1 || ready[0] != "germany" {
		t.Errorf("want [germany], got %v", ready)
	}
}

func TestDrawVotesSurvivePhaseClear(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	if err := c.AddDrawVote(ctx, 1, "france"); err != nil {
		t.Fatalf("add draw vote: %v", err)
	}
	if err := c.MarkReady(ctx, 1, "france"); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if err := c.SetDeadline(ctx, 1, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	if err := c.ClearPhaseData(ctx, 1); err != nil {
		t.Fatalf("clear phase data: %v", err)
	}
	if ready, _ := c.ReadyCountries(ctx, 1); len(ready) != 0 {
		t.Errorf("ready marks should be cleared, got %v", ready)
	}
	if d, _ := c.GetDeadline(ctx, 1); d != nil {
		t.Errorf("deadline should be cleared, got %v", d)
	}
	votes, err := c.DrawVotes(ctx, 1)
	if err != nil {
		t.Fatalf("draw votes: %v", err)
	}
	if len(votes) != 1 || votes[0] != "france" {
		t.Errorf("draw votes persist across phases, got %v", votes)
	}

	if err := c.DeleteGameData(ctx, 1); err != nil {
		t.Fatalf("delete game data: %v", err)
	}
	if votes, _ := c.DrawVotes(ctx, 1); len(votes) != 0 {
		t.Errorf("deleting game data removes draw votes, got %v", votes)
	}
}

func TestRemoveDrawVote(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	if err := c.AddDrawVote(ctx, 1, "france"); err != nil {
		t.Fatalf("add draw vote: %v", err)
	}
	if err := c.RemoveDrawVote(ctx, 1, "france"); err != nil {
		t.Fatalf("remove draw vote: %v", err)
	}
	if votes, _ := c.DrawVotes(ctx, 1); len(votes) != 0 {
		t.Errorf("want no votes, got %v", votes)
	}
}

// A short deadline's key actually expires, which is what drives phase
// resolution in production.
func TestDeadlineKeyExpires(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	if err := c.SetDeadline(ctx, 1, past); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	// A lapsed deadline is stored with a one second floor TTL.
	time.Sleep(1500 * time.Millisecond)
	if d, _ := c.GetDeadline(ctx, 1); d != nil {
		t.Errorf("the key should have expired, got %v", d)
	}
}
