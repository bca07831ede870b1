package engine

import (
	"github.com/mveit/entente/pkg/dipmap"
)

// Phase is the game's current submission window.
type Phase string

const (
	CountryClaiming    Phase = "countryClaiming"
	OrderWriting       Phase = "orderWriting"
	Retreating         Phase = "retreating"
	CreatingDisbanding Phase = "creatingDisbanding"
)

// WonState tracks whether the game is live, won, or drawn.
type WonState string

const (
	Playing WonState = "playing"
	Won     WonState = "won"
	Drawn   WonState = "drawn"
)

// Game is one match: the claimed countries, the phase, and the full history
// of states. The last history entry is the current state; the one before it
// holds the just-resolved orders and their results.
type Game struct {
	ID      int64
	Name    string
	MapName string
	Users   []string
	// Players maps country id to the claiming username, "" while unclaimed.
	Players map[string]string
	Winner  string
	Won     WonState
	Phase   Phase
	History []*State

	board *dipmap.Map
}

// NewGame builds a fresh game on the given map for the given users. The
// board is pruned by the player configuration matching the user count, and
// the opening state is derived from the map's countries and start units.
func NewGame(id int64, name, mapName string, base *dipmap.Map, users []string) (*Game, error) {
	cfg, ok := base.PlayerConfiguration(len(users))
	if !ok {
		return nil, errf(InvalidSubmission, "map %s has no configuration for %d players", mapName, len(users))
	}
	board := base.Prune(cfg)

	g := &Game{
		ID:      id,
		Name:    name,
		MapName: mapName,
		Users:   append([]string(nil), users...),
		Players: make(map[string]string),
		Won:     Playing,
		Phase:   CountryClaiming,
		board:   board,
	}
	for _, c := range board.Countries() {
		g.Players[c] = ""
	}

	s := NewState(board.Info.Date, Spring)
	for _, cid := range board.Countries() {
		country := board.Country(cid)
		n := &NationState{
			SupplyCenters: append([]string(nil), country.SupplyCenters...),
		}
		s.Nations[cid] = n
		for _, sc := range country.SupplyCenters {
			p := board.Province(sc)
			if p == nil || p.StartUnit == dipmap.StartNone {
				continue
			}
			ut := Army
			if p.StartUnit == dipmap.StartFleet {
				ut = Fleet
			}
			if err := s.SpawnUnit(board, Unit{
				Type:     ut,
				Country:  cid,
				Province: sc,
				Coast:    p.StartCoast,
			}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.check(board); err != nil {
		return nil, err
	}
	g.History = []*State{s}
	return g, nil
}

// Board returns the game's pruned map view.
func (g *Game) Board() *dipmap.Map { return g.board }

// Current returns the latest history entry.
func (g *Game) Current() *State { return g.History[len(g.History)-1] }

// Previous returns the second-to-last history entry, or nil.
func (g *Game) Previous() *State {
	if len(g.History) < 2 {
		return nil
	}
	return g.History[len(g.History)-2]
}

// CountriesOf returns the countries a user has claimed, in board order.
func (g *Game) CountriesOf(user string) []string {
	var out []string
	for _, c := range g.board.Countries() {
		if g.Players[c] == user {
			out = append(out, c)
		}
	}
	return out
}

// ClaimCountry assigns a country to a user during CountryClaiming. Claiming
// any member of a country group claims the whole group. When every country
// is claimed the game moves to OrderWriting.
func (g *Game) ClaimCountry(user, country string) error {
	if g.Phase != CountryClaiming {
		return errf(InvalidState, "countries can only be claimed before the game starts")
	}
	if !g.hasUser(user) {
		return errf(PermissionDenied, "%s is not in this game", user)
	}
	if g.board.Country(country) == nil {
		return errf(NotFound, "no country %q on this map", country)
	}
	if len(g.CountriesOf(user)) > 0 {
		return errf(InvalidSubmission, "%s has already claimed a country", user)
	}
	group := g.board.CountryGroup(country)
	for _, c := range group {
		if owner := g.Players[c]; owner != "" {
			return errf(InvalidSubmission, "%s is already claimed by %s", c, owner)
		}
	}
	for _, c := range group {
		g.Players[c] = user
	}
	for _, c := range g.board.Countries() {
		if g.Players[c] == "" {
			return nil
		}
	}
	g.Phase = OrderWriting
	return nil
}

func (g *Game) hasUser(user string) bool {
	for _, u := range g.Users {
		if u == user {
			return true
		}
	}
	return false
}

// SubmitOrder stores a movement-phase order (or a Cancel) for the unit at
// o.Province. The submitting user must own the country owning that unit;
// the last submission per unit wins.
func (g *Game) SubmitOrder(user string, o *Order) error {
	if g.Phase != OrderWriting {
		return errf(InvalidState, "orders are not being written now")
	}
	s := g.Current()
	unit := s.UnitAt(o.Province)
	if unit == nil {
		return errf(NotFound, "no unit at %s", o.Province)
	}
	if g.Players[unit.Country] != user {
		return errf(PermissionDenied, "%s does not control %s", user, unit.Country)
	}
	if o.Kind == Cancel {
		s.ClearOrder(unit.Country, o.Province)
		return nil
	}
	o.Country = unit.Country
	if err := ValidateOrder(o, s, g.board); err != nil {
		return err
	}
	s.SetOrder(unit.Country, o)
	return nil
}

// SubmitRetreat stores a retreat for one of the user's dislodged units.
func (g *Game) SubmitRetreat(user string, o *Order) error {
	if g.Phase != Retreating {
		return errf(InvalidState, "no retreats are pending")
	}
	s := g.Current()
	d := s.Dislodgements[o.Province]
	if d == nil {
		return errf(NotFound, "no dislodged unit at %s", o.Province)
	}
	if g.Players[d.Country] != user {
		return errf(PermissionDenied, "%s does not control %s", user, d.Country)
	}
	if o.Kind == Cancel {
		delete(s.Retreats[d.Country], o.Province)
		return nil
	}
	if o.Kind != Retreat {
		return errf(InvalidSubmission, "order %s not legal during retreats", o.Kind)
	}
	o.Country = d.Country
	if err := validateRetreat(o, s, g.board); err != nil {
		return err
	}
	s.SetRetreat(d.Country, o)
	return nil
}

// SubmitAdjustment stores a build, disband, or pass for the user's country.
// A later non-Pass submission displaces any stored Pass.
func (g *Game) SubmitAdjustment(user string, o *Order) error {
	if g.Phase != CreatingDisbanding {
		return errf(InvalidState, "no adjustments are pending")
	}
	if o.Country == "" || g.Players[o.Country] != user {
		return errf(PermissionDenied, "%s does not control %q", user, o.Country)
	}
	s := g.Current()
	if o.Kind != Pass {
		kept := s.Adjustments[o.Country][:0]
		for _, prev := range s.Adjustments[o.Country] {
			if prev.Kind != Pass {
				kept = append(kept, prev)
			}
		}
		s.Adjustments[o.Country] = kept
	}
	if err := ValidateAdjustment(o, s, g.board); err != nil {
		return err
	}
	s.Adjustments[o.Country] = append(s.Adjustments[o.Country], o)
	return nil
}

// SetDrawn ends the game in a draw. The winner stays empty.
func (g *Game) SetDrawn() {
	g.Won = Drawn
}
