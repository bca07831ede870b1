package engine

import (
	"sort"

	"github.com/mveit/entente/pkg/dipmap"
)

// AdjudicateRetreats resolves the retreat phase. Retreats clash purely on
// destination: a retreat fails when any other submitted retreat names the
// same destination, and a failed or missing retreat disbands the unit.
// Results are stamped on the submitted orders; the survivors are returned
// so the caller can place them on the next state.
func AdjudicateRetreats(s *State) []*Order {
	flat := make([]*Order, 0, len(s.Dislodgements))
	for country, table := range s.Retreats {
		for prov, o := range table {
			if s.Dislodgements[prov] == nil {
				continue
			}
			o.Country = country
			flat = append(flat, o)
		}
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].Province < flat[j].Province })

	destCount := make(map[string]int, len(flat))
	for _, o := range flat {
		destCount[o.Dest]++
	}

	var survivors []*Order
	for _, o := range flat {
		if destCount[o.Dest] > 1 {
			o.Result = Fail
			continue
		}
		o.Result = Success
		survivors = append(survivors, o)
	}
	return survivors
}

// ApplyRetreats places the surviving retreats on the next state. Dislodged
// units without a successful retreat are gone: they were never copied
// forward. Coast resolution mirrors movement: a fleet retreating into a
// split-coast province with exactly one reachable coast takes it.
func ApplyRetreats(m *dipmap.Map, prev *State, next *State, survivors []*Order) error {
	for _, o := range survivors {
		d := prev.Dislodgements[o.Province]
		if d == nil {
			return errf(Internal, "retreat from %s has no dislodgement", o.Province)
		}
		u := d.Unit
		u.Province = o.Dest
		u.Coast = o.DestCoast
		if u.Type == Fleet && m.HasCoasts(o.Dest) && u.Coast == dipmap.NoCoast {
			coasts := m.FleetCoastsTo(o.Province, d.Unit.Coast, o.Dest)
			if len(coasts) != 1 {
				return errf(Internal, "retreat to %s has ambiguous coast", o.Dest)
			}
			u.Coast = coasts[0]
		}
		if u.Type == Army || !m.HasCoasts(o.Dest) {
			u.Coast = dipmap.NoCoast
		}
		if err := next.SpawnUnit(m, u); err != nil {
			return err
		}
	}
	return nil
}
