package engine

import (
	"sort"
)

// CalculateOrders closes the movement phase: unordered units get synthetic
// Holds, the adjudicator stamps every order, and a new state with the
// post-move positions is appended. The game moves to Retreating when
// anything was dislodged, otherwise straight into the next window.
func (g *Game) CalculateOrders() error {
	if g.Phase != OrderWriting {
		return errf(InvalidState, "orders are not being written now")
	}
	cur := g.Current()
	g.fillHolds(cur)

	flat := g.flattenOrders(cur)
	outcome, err := AdjudicateMoves(g.board, cur, flat)
	if err != nil {
		return err
	}
	cur.Dislodgements = outcome.Dislodgements
	cur.Contested = outcome.Contested

	next := NewState(cur.Date, cur.Season)
	for id, n := range cur.Nations {
		next.Nations[id] = &NationState{
			SupplyCenters: append([]string(nil), n.SupplyCenters...),
			Units:         append([]Unit(nil), n.Units...),
			Neutral:       n.Neutral,
		}
	}
	if err := outcome.ApplyMoves(g.board, next); err != nil {
		return err
	}
	g.History = append(g.History, next)

	if len(outcome.Dislodgements) > 0 {
		for prov, d := range outcome.Dislodgements {
			dc := *d
			next.Dislodgements[prov] = &dc
		}
		for prov := range outcome.Contested {
			next.Contested[prov] = true
		}
		g.Phase = Retreating
		return nil
	}
	g.advanceTurn(cur.Season)
	return nil
}

// fillHolds gives every unordered unit a synthetic Hold so the adjudicator
// sees exactly one order per unit.
func (g *Game) fillHolds(s *State) {
	for country, n := range s.Nations {
		for _, u := range n.Units {
			if s.Orders[country] == nil || s.Orders[country][u.Province] == nil {
				s.SetOrder(country, NewHold(country, u.Province))
			}
		}
	}
}

// flattenOrders collects the per-country order tables into one slice in
// board province order, the adjudicator's canonical tie-break.
func (g *Game) flattenOrders(s *State) []*Order {
	var flat []*Order
	for _, table := range s.Orders {
		for _, o := range table {
			flat = append(flat, o)
		}
	}
	sort.Slice(flat, func(i, j int) bool {
		return g.board.ProvinceIndex(flat[i].Province) < g.board.ProvinceIndex(flat[j].Province)
	})
	return flat
}

// CalculateRetreats closes the retreat phase: clashing or missing retreats
// disband, survivors take their destinations, and the turn advances. The
// current state is updated in place; history grows only at movement close.
func (g *Game) CalculateRetreats() error {
	if g.Phase != Retreating {
		return errf(InvalidState, "no retreats are pending")
	}
	cur := g.Current()
	survivors := AdjudicateRetreats(cur)
	if err := ApplyRetreats(g.board, cur, cur, survivors); err != nil {
		return err
	}
	cur.Dislodgements = make(map[string]*Dislodgement)
	g.advanceTurn(cur.Season)
	return nil
}

// advanceTurn steps the current state into the next submission window after
// movement or retreats have settled. Spring flips to Fall; the end of Fall
// reassigns supply centers and opens the adjustment window of the new year.
func (g *Game) advanceTurn(closed Season) {
	cur := g.Current()
	cur.Contested = make(map[string]bool)
	if closed == Spring {
		cur.Season = Fall
		g.Phase = OrderWriting
		return
	}
	cur.Season = Spring
	cur.Date++
	ReassignSupplyCenters(g.board, cur)
	if winner := Winner(g.board, cur); winner != "" {
		g.Winner = g.Players[winner]
		g.Won = Won
	}
	g.Phase = CreatingDisbanding
}

// CalculateAdjustments closes the adjustment phase: stored builds and
// disbands apply atomically, quota gaps fall to the defaults, and order
// writing reopens for the new year.
func (g *Game) CalculateAdjustments() error {
	if g.Phase != CreatingDisbanding {
		return errf(InvalidState, "no adjustments are pending")
	}
	cur := g.Current()
	if err := AdjudicateAdjustments(g.board, cur); err != nil {
		return err
	}
	if err := cur.check(g.board); err != nil {
		return err
	}
	if g.Won != Playing {
		return nil
	}
	g.Phase = OrderWriting
	return nil
}
