package engine

import (
	"encoding/json"
	"testing"

	"github.com/mveit/entente/pkg/dipmap"
)

// startedGame builds a seven player game on the standard map with one user
// per country, claimed through to order writing.
func startedGame(t *testing.T) (*Game, *dipmap.Map) {
	t.Helper()
	m := board(t)
	var users []string
	for _, c := range m.Countries() {
		users = append(users, "u_"+c)
	}
	g, err := NewGame(1, "test", "standard", m, users)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	for _, c := range m.Countries() {
		if err := g.ClaimCountry("u_"+c, c); err != nil {
			t.Fatalf("claim %s: %v", c, err)
		}
	}
	if g.Phase != OrderWriting {
		t.Fatalf("all countries claimed, want phase %s, got %s", OrderWriting, g.Phase)
	}
	return g, m
}

// gameWith wraps a hand-built state in a game already in order writing.
func gameWith(t *testing.T, m *dipmap.Map, s *State) *Game {
	t.Helper()
	g := &Game{
		ID:      1,
		Name:    "test",
		MapName: "standard",
		Players: make(map[string]string),
		Won:     Playing,
		Phase:   OrderWriting,
		History: []*State{s},
		board:   m,
	}
	for _, c := range m.Countries() {
		g.Users = append(g.Users, "u_"+c)
		g.Players[c] = "u_" + c
	}
	return g
}

func TestNewGameOpeningPosition(t *testing.T) {
	m := board(t)
	var users []string
	for _, c := range m.Countries() {
		users = append(users, "u_"+c)
	}
	g, err := NewGame(1, "test", "standard", m, users)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	if g.Phase != CountryClaiming {
		t.Errorf("fresh game should be claiming countries, got %s", g.Phase)
	}
	s := g.Current()
	if s.Date != m.Info.Date || s.Season != Spring {
		t.Errorf("opening state should be spring %d, got %s %d", m.Info.Date, s.Season, s.Date)
	}
	if got := s.UnitCount("france"); got != 3 {
		t.Errorf("France starts with 3 units, got %d", got)
	}
	if u := s.UnitAt("bre"); u == nil || u.Type != Fleet {
		t.Errorf("Brest should start with a fleet, got %+v", u)
	}
	if u := s.UnitAt("par"); u == nil || u.Type != Army {
		t.Errorf("Paris should start with an army, got %+v", u)
	}
	if u := s.UnitAt("stp"); u == nil || u.Coast != dipmap.SouthCoast {
		t.Errorf("the St Petersburg fleet starts on the south coast, got %+v", u)
	}
}

func TestClaimCountry(t *testing.T) {
	m := board(t)
	var users []string
	for _, c := range m.Countries() {
		users = append(users, "u_"+c)
	}
	g, err := NewGame(1, "test", "standard", m, users)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}

	if err := g.ClaimCountry("u_france", "france"); err != nil {
		t.Fatalf("claim france: %v", err)
	}
	if got := g.CountriesOf("u_france"); len(got) != 1 || got[0] != "france" {
		t.Errorf("u_france should hold exactly france, got %v", got)
	}

	err = g.ClaimCountry("u_germany", "france")
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("claiming a taken country should be invalid, got %v", err)
	}
	err = g.ClaimCountry("u_france", "germany")
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("a second claim by the same user should be invalid, got %v", err)
	}
	err = g.ClaimCountry("stranger", "germany")
	if !IsKind(err, PermissionDenied) {
		t.Errorf("a claim by a non-participant should be denied, got %v", err)
	}
	err = g.ClaimCountry("u_germany", "atlantis")
	if !IsKind(err, NotFound) {
		t.Errorf("claiming an unknown country should be not found, got %v", err)
	}
}

func TestSubmitOrderAndCancel(t *testing.T) {
	g, _ := startedGame(t)

	err := g.SubmitOrder("u_germany", NewMove("", "par", "bur", dipmap.NoCoast, false))
	if !IsKind(err, PermissionDenied) {
		t.Errorf("ordering a foreign unit should be denied, got %v", err)
	}

	if err := g.SubmitOrder("u_france", NewMove("", "par", "bur", dipmap.NoCoast, false)); err != nil {
		t.Fatalf("submit move: %v", err)
	}
	if o := g.Current().Orders["france"]["par"]; o == nil || o.Kind != Move || o.Country != "france" {
		t.Errorf("the Paris order should be stored under france, got %+v", o)
	}

	if err := g.SubmitOrder("u_france", NewCancel("france", "par")); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o := g.Current().Orders["france"]["par"]; o != nil {
		t.Errorf("cancel should clear the stored order, got %+v", o)
	}
}

// Closing a movement phase with no conflicts appends one state and flips
// spring to fall in the same year.
func TestCalculateOrdersAppendsState(t *testing.T) {
	g, _ := startedGame(t)
	date := g.Current().Date

	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	if len(g.History) != 2 {
		t.Fatalf("closing movement should append exactly one state, history has %d", len(g.History))
	}
	if g.Phase != OrderWriting {
		t.Errorf("no dislodgements, want phase %s, got %s", OrderWriting, g.Phase)
	}
	cur := g.Current()
	if cur.Season != Fall || cur.Date != date {
		t.Errorf("want fall %d, got %s %d", date, cur.Season, cur.Date)
	}
	prev := g.Previous()
	if prev == nil {
		t.Fatal("previous state should exist after resolution")
	}
	for country, table := range prev.Orders {
		for prov, o := range table {
			if o.Result != Success {
				t.Errorf("opening hold %s/%s should succeed, got %s", country, prov, o.Result)
			}
		}
	}
	if len(cur.Orders) != 0 {
		t.Errorf("the new state should start with no orders, got %d tables", len(cur.Orders))
	}
}

func TestCalculateOrdersEntersRetreating(t *testing.T) {
	m := board(t)
	s := stateWith(t, m,
		Unit{Army, "austria", "tri", dipmap.NoCoast},
		Unit{Army, "austria", "tyr", dipmap.NoCoast},
		Unit{Army, "italy", "ven", dipmap.NoCoast},
	)
	g := gameWith(t, m, s)
	s.SetOrder("austria", NewMove("austria", "tri", "ven", dipmap.NoCoast, false))
	s.SetOrder("austria", NewSupportMove("austria", "tyr", "ven", "tri"))

	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	if g.Phase != Retreating {
		t.Fatalf("a dislodgement should open the retreat window, got %s", g.Phase)
	}
	prev, cur := g.Previous(), g.Current()
	pd, cd := prev.Dislodgements["ven"], cur.Dislodgements["ven"]
	if pd == nil || cd == nil {
		t.Fatal("the Venice dislodgement should appear in both states")
	}
	if pd == cd {
		t.Error("the new state must carry its own copy of the dislodgement")
	}
	if cd.From != "tri" {
		t.Errorf("dislodgement should record the attacker's origin, got %q", cd.From)
	}
}

func TestCalculateRetreatsAdvancesTurn(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	s.Dislodgements["ber"] = &Dislodgement{
		Unit: Unit{Army, "germany", "ber", dipmap.NoCoast}, From: "kie", Country: "germany",
	}
	g := gameWith(t, m, s)
	g.Phase = Retreating
	s.SetRetreat("germany", NewRetreat("germany", "ber", "pru", dipmap.NoCoast))

	if err := g.CalculateRetreats(); err != nil {
		t.Fatalf("calculate retreats: %v", err)
	}
	if len(g.History) != 1 {
		t.Errorf("retreats mutate the current state, history should stay at 1, got %d", len(g.History))
	}
	if g.Phase != OrderWriting {
		t.Errorf("want phase %s after retreats, got %s", OrderWriting, g.Phase)
	}
	cur := g.Current()
	if cur.Season != Fall {
		t.Errorf("spring retreats should open the fall window, got %s", cur.Season)
	}
	if u := cur.UnitAt("pru"); u == nil || u.Country != "germany" {
		t.Errorf("the survivor should stand in Prussia, got %+v", u)
	}
	if len(cur.Dislodgements) != 0 {
		t.Errorf("dislodgements should be cleared, got %d", len(cur.Dislodgements))
	}
}

// The end of fall reassigns centers and opens the adjustment window.
func TestFallOpensAdjustments(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "germany", "war", dipmap.NoCoast})
	s.Season = Fall
	s.Nations["germany"].SupplyCenters = []string{"ber", "kie", "mun"}
	s.Nations["russia"].SupplyCenters = []string{"mos", "sev", "stp", "war"}
	g := gameWith(t, m, s)

	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	if g.Phase != CreatingDisbanding {
		t.Fatalf("germany is owed builds, want phase %s, got %s", CreatingDisbanding, g.Phase)
	}
	cur := g.Current()
	if cur.Season != Spring || cur.Date != s.Date+1 {
		t.Errorf("want spring of the next year, got %s %d", cur.Season, cur.Date)
	}
	if cur.OwnerOfSupplyCenter("war") != "germany" {
		t.Error("Warsaw should have changed hands at year end")
	}
	if got := cur.Nations["germany"].ToBuild; got != 3 {
		t.Errorf("germany holds 4 centers with 1 unit, want ToBuild 3, got %d", got)
	}

	if err := g.CalculateAdjustments(); err != nil {
		t.Fatalf("calculate adjustments: %v", err)
	}
	if g.Phase != OrderWriting {
		t.Errorf("adjustments closed, want phase %s, got %s", OrderWriting, g.Phase)
	}
}

// Even a balanced board passes through the adjustment window; closing it
// with no submissions is a no-op.
func TestFallOpensAdjustmentsOnBalancedBoard(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "france", "par", dipmap.NoCoast})
	s.Season = Fall
	s.Nations["france"].SupplyCenters = []string{"par"}
	g := gameWith(t, m, s)

	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	if g.Phase != CreatingDisbanding {
		t.Fatalf("fall always opens adjustments, want %s, got %s", CreatingDisbanding, g.Phase)
	}
	if cur := g.Current(); cur.Season != Spring {
		t.Errorf("want spring of the next year, got %s", cur.Season)
	}
	if got := g.Current().Nations["france"].ToBuild; got != 0 {
		t.Fatalf("one center one unit, want ToBuild 0, got %d", got)
	}

	if err := g.CalculateAdjustments(); err != nil {
		t.Fatalf("empty adjustment window should close cleanly: %v", err)
	}
	if g.Phase != OrderWriting {
		t.Errorf("adjustments closed, want %s, got %s", OrderWriting, g.Phase)
	}
	if u := g.Current().UnitAt("par"); u == nil || u.Country != "france" {
		t.Errorf("the French army should be untouched, got %+v", u)
	}
}

func TestMajorityOfCentersWinsAtYearEnd(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	s.Season = Fall
	total := len(m.SupplyCenters())
	s.Nations["france"].SupplyCenters = append([]string(nil), m.SupplyCenters()[:total/2+1]...)
	g := gameWith(t, m, s)

	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	if g.Won != Won {
		t.Fatalf("france holds a majority, want state %s, got %s", Won, g.Won)
	}
	if g.Winner != "u_france" {
		t.Errorf("the winner should be france's player, got %q", g.Winner)
	}
	if g.Phase != CreatingDisbanding {
		t.Errorf("the final adjustment window still opens, got %s", g.Phase)
	}
	if err := g.CalculateAdjustments(); err != nil {
		t.Fatalf("calculate adjustments: %v", err)
	}
	if g.Phase != CreatingDisbanding {
		t.Errorf("a finished game does not reopen order writing, got %s", g.Phase)
	}
}

func TestGameSerializeRoundTrip(t *testing.T) {
	g, m := startedGame(t)
	if err := g.SubmitOrder("u_france", NewMove("", "par", "bur", dipmap.NoCoast, false)); err != nil {
		t.Fatalf("submit move: %v", err)
	}
	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}

	doc, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal game: %v", err)
	}
	g2, err := LoadGame(doc, m)
	if err != nil {
		t.Fatalf("load game: %v", err)
	}

	if g2.ID != g.ID || g2.Name != g.Name || g2.MapName != g.MapName {
		t.Errorf("identity fields should round-trip, got %d %q %q", g2.ID, g2.Name, g2.MapName)
	}
	if g2.Phase != g.Phase || g2.Won != g.Won {
		t.Errorf("phase fields should round-trip, got %s %s", g2.Phase, g2.Won)
	}
	if len(g2.History) != len(g.History) {
		t.Fatalf("history length should round-trip, want %d, got %d", len(g.History), len(g2.History))
	}
	if g2.Players["france"] != "u_france" {
		t.Errorf("claims should round-trip, got %q", g2.Players["france"])
	}
	if u := g2.Current().UnitAt("bur"); u == nil || u.Country != "france" || u.Type != Army {
		t.Errorf("the French army should stand in Burgundy after reload, got %+v", u)
	}
	prev := g2.Previous()
	if o := prev.Orders["france"]["par"]; o == nil || o.Kind != Move || o.Result != Success {
		t.Errorf("resolved orders should round-trip with their results, got %+v", o)
	}
	if u := g2.Current().UnitAt("stp"); u == nil || u.Coast != dipmap.SouthCoast {
		t.Errorf("coasts should round-trip, got %+v", u)
	}
}

func TestSanitizedHidesForeignSubmissions(t *testing.T) {
	g, _ := startedGame(t)
	if err := g.SubmitOrder("u_france", NewMove("", "par", "bur", dipmap.NoCoast, false)); err != nil {
		t.Fatalf("submit move: %v", err)
	}
	if err := g.SubmitOrder("u_germany", NewMove("", "mun", "ruh", dipmap.NoCoast, false)); err != nil {
		t.Fatalf("submit move: %v", err)
	}

	view := g.Sanitized("u_germany")
	cur := view.Current()
	if cur.Orders["germany"] == nil || cur.Orders["germany"]["mun"] == nil {
		t.Error("the viewer's own orders should survive sanitizing")
	}
	if cur.Orders["france"] != nil {
		t.Error("foreign in-flight orders must be stripped")
	}
	if g.Current().Orders["france"]["par"] == nil {
		t.Error("sanitizing must not touch the source game")
	}

	// After resolution the same orders are public history.
	if err := g.CalculateOrders(); err != nil {
		t.Fatalf("calculate orders: %v", err)
	}
	view = g.Sanitized("u_germany")
	if view.Previous().Orders["france"]["par"] == nil {
		t.Error("resolved orders are public and must survive sanitizing")
	}
}
