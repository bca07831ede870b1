package engine

import (
	"github.com/mveit/entente/pkg/dipmap"
)

// ValidateOrder checks whether a movement-phase order is legal given the
// board and map. Occupancy and ownership of other provinces are not
// consulted beyond what the order shape requires; strength contests are the
// adjudicator's business.
func ValidateOrder(o *Order, s *State, m *dipmap.Map) error {
	unit := s.UnitAt(o.Province)
	if unit == nil {
		return errf(InvalidSubmission, "no unit at %s", o.Province)
	}
	if o.Country != "" && unit.Country != o.Country {
		return errf(PermissionDenied, "unit at %s belongs to %s, not %s", o.Province, unit.Country, o.Country)
	}

	switch o.Kind {
	case Hold:
		return nil
	case Move:
		return validateMove(o, unit, s, m)
	case SupportHold:
		return validateSupportHold(o, unit, m)
	case SupportMove:
		return validateSupportMove(o, unit, s, m)
	case Convoy:
		return validateConvoy(o, unit, s, m)
	default:
		return errf(InvalidSubmission, "order %s not legal during order writing", o.Kind)
	}
}

func validateMove(o *Order, unit *Unit, s *State, m *dipmap.Map) error {
	fleet := unit.Type == Fleet
	dest := m.Province(o.Dest)
	if dest == nil {
		return errf(NotFound, "no province %q", o.Dest)
	}
	if fleet && dest.Kind == dipmap.Land {
		return errf(InvalidSubmission, "fleet cannot move inland to %s", o.Dest)
	}
	if !fleet && dest.Kind == dipmap.Sea {
		return errf(InvalidSubmission, "army cannot move to sea at %s", o.Dest)
	}

	if m.Adjacent(o.Province, unit.Coast, o.Dest, o.DestCoast, fleet) {
		if fleet && m.HasCoasts(o.Dest) {
			return validateFleetCoast(o, unit, m)
		}
		return nil
	}
	if !fleet && canBeConvoyed(o.Province, o.Dest, s, m) {
		return nil
	}
	return errf(InvalidSubmission, "cannot move from %s to %s", o.Province, o.Dest)
}

func validateFleetCoast(o *Order, unit *Unit, m *dipmap.Map) error {
	coasts := m.FleetCoastsTo(o.Province, unit.Coast, o.Dest)
	if o.DestCoast == dipmap.NoCoast {
		if len(coasts) == 0 {
			return errf(InvalidSubmission, "fleet cannot reach any coast of %s", o.Dest)
		}
		if len(coasts) > 1 {
			return errf(InvalidSubmission, "must name a coast of %s", o.Dest)
		}
		return nil
	}
	for _, c := range coasts {
		if c == o.DestCoast {
			return nil
		}
	}
	return errf(InvalidSubmission, "fleet cannot reach %s/%s from %s", o.Dest, o.DestCoast, o.Province)
}

func validateSupportHold(o *Order, unit *Unit, m *dipmap.Map) error {
	if o.Supporting == o.Province {
		return errf(InvalidSubmission, "unit cannot support its own province")
	}
	if !m.Adjacent(o.Province, unit.Coast, o.Supporting, dipmap.NoCoast, unit.Type == Fleet) {
		return errf(InvalidSubmission, "cannot support hold at %s from %s", o.Supporting, o.Province)
	}
	return nil
}

func validateSupportMove(o *Order, unit *Unit, s *State, m *dipmap.Map) error {
	if o.Supporting == o.Province {
		return errf(InvalidSubmission, "unit cannot support a move into its own province")
	}
	if !m.Adjacent(o.Province, unit.Coast, o.Supporting, dipmap.NoCoast, unit.Type == Fleet) {
		return errf(InvalidSubmission, "cannot support a move to %s from %s", o.Supporting, o.Province)
	}
	mover := s.UnitAt(o.From)
	if mover == nil {
		return errf(InvalidSubmission, "no unit at %s to support", o.From)
	}
	if !m.Adjacent(o.From, mover.Coast, o.Supporting, dipmap.NoCoast, mover.Type == Fleet) {
		if mover.Type != Army || !canBeConvoyed(o.From, o.Supporting, s, m) {
			return errf(InvalidSubmission, "unit at %s cannot reach %s", o.From, o.Supporting)
		}
	}
	return nil
}

func validateConvoy(o *Order, unit *Unit, s *State, m *dipmap.Map) error {
	if unit.Type != Fleet {
		return errf(InvalidSubmission, "only fleets convoy")
	}
	prov := m.Province(o.Province)
	if prov == nil || prov.Kind != dipmap.Sea {
		return errf(InvalidSubmission, "convoying fleet must be at sea")
	}
	start := m.Province(o.Start)
	end := m.Province(o.End)
	if start == nil || end == nil {
		return errf(NotFound, "convoy names unknown province")
	}
	if start.Kind != dipmap.Coastal || end.Kind != dipmap.Coastal {
		return errf(InvalidSubmission, "convoy endpoints must be coastal")
	}
	carried := s.UnitAt(o.Start)
	if carried == nil || carried.Type != Army {
		return errf(InvalidSubmission, "no army at %s to convoy", o.Start)
	}
	reach := seaReach(o.Province, s, m)
	if !reach[o.Start] || !reach[o.End] {
		return errf(InvalidSubmission, "%s is not on a sea chain between %s and %s", o.Province, o.Start, o.End)
	}
	return nil
}

// canBeConvoyed reports whether an army could move src -> dst over a chain
// of sea provinces each occupied by some fleet. Reachability only; whether
// the convoy succeeds is decided at adjudication.
func canBeConvoyed(src, dst string, s *State, m *dipmap.Map) bool {
	srcProv := m.Province(src)
	dstProv := m.Province(dst)
	if srcProv == nil || dstProv == nil {
		return false
	}
	if srcProv.Kind == dipmap.Sea || dstProv.Kind == dipmap.Sea {
		return false
	}

	visited := make(map[string]bool)
	var queue []string
	for _, adj := range m.Neighbors(src) {
		if convoyHop(adj, s, m) && !visited[adj] {
			visited[adj] = true
			queue = append(queue, adj)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, adj := range m.Neighbors(cur) {
			if adj == dst {
				return true
			}
			if convoyHop(adj, s, m) && !visited[adj] {
				visited[adj] = true
				queue = append(queue, adj)
			}
		}
	}
	return false
}

// convoyHop reports whether a province can carry a convoy chain: a sea
// province currently occupied by a fleet.
func convoyHop(prov string, s *State, m *dipmap.Map) bool {
	p := m.Province(prov)
	if p == nil || p.Kind != dipmap.Sea {
		return false
	}
	u := s.UnitAt(prov)
	return u != nil && u.Type == Fleet
}

// seaReach returns the coastal provinces reachable from a sea province over
// chains of fleet-occupied sea provinces, including the starting province's
// own coastal neighbours.
func seaReach(from string, s *State, m *dipmap.Map) map[string]bool {
	reach := make(map[string]bool)
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, adj := range m.Neighbors(cur) {
			p := m.Province(adj)
			if p == nil {
				continue
			}
			if p.Kind == dipmap.Coastal {
				reach[adj] = true
				continue
			}
			if convoyHop(adj, s, m) && !visited[adj] {
				visited[adj] = true
				queue = append(queue, adj)
			}
		}
	}
	return reach
}

// ValidOrders enumerates every legal movement-phase order for the unit at a
// province.
func ValidOrders(s *State, m *dipmap.Map, province string) ([]*Order, error) {
	unit := s.UnitAt(province)
	if unit == nil {
		return nil, errf(NotFound, "no unit at %s", province)
	}
	fleet := unit.Type == Fleet
	country := unit.Country
	orders := []*Order{NewHold(country, province)}

	// Direct moves, per-coast for split-coast destinations.
	for _, dest := range m.ProvincesAdjacentTo(province, unit.Coast, fleet) {
		p := m.Province(dest)
		if fleet && p.Kind == dipmap.Land {
			continue
		}
		if !fleet && p.Kind == dipmap.Sea {
			continue
		}
		if fleet && m.HasCoasts(dest) {
			for _, c := range m.FleetCoastsTo(province, unit.Coast, dest) {
				orders = append(orders, NewMove(country, province, dest, c, false))
			}
			continue
		}
		orders = append(orders, NewMove(country, province, dest, dipmap.NoCoast, false))
	}

	// Convoyed moves for armies.
	if !fleet {
		for _, dest := range m.Provinces() {
			if dest == province || m.Adjacent(province, dipmap.NoCoast, dest, dipmap.NoCoast, false) {
				continue
			}
			if canBeConvoyed(province, dest, s, m) {
				orders = append(orders, NewMove(country, province, dest, dipmap.NoCoast, true))
			}
		}
	}

	// Supports into every reachable square.
	for _, dest := range m.ProvincesAdjacentTo(province, unit.Coast, fleet) {
		orders = append(orders, NewSupportHold(country, province, dest))
		for _, from := range m.Provinces() {
			if from == province || from == dest {
				continue
			}
			mover := s.UnitAt(from)
			if mover == nil {
				continue
			}
			if m.Adjacent(from, mover.Coast, dest, dipmap.NoCoast, mover.Type == Fleet) ||
				(mover.Type == Army && canBeConvoyed(from, dest, s, m)) {
				orders = append(orders, NewSupportMove(country, province, dest, from))
			}
		}
	}

	// Convoys for fleets at sea.
	if fleet && m.Province(province).Kind == dipmap.Sea {
		reach := seaReach(province, s, m)
		for start := range reach {
			carried := s.UnitAt(start)
			if carried == nil || carried.Type != Army {
				continue
			}
			for end := range reach {
				if end != start {
					orders = append(orders, NewConvoy(country, province, start, end))
				}
			}
		}
	}

	return orders, nil
}

// ValidRetreats enumerates the legal retreat destinations for a
// dislodgement: provinces adjacent by the unit's movement rule, unoccupied,
// not contested this turn, and not the attacker's origin unless the
// attacker arrived by convoy.
func ValidRetreats(s *State, m *dipmap.Map, d *Dislodgement) []*Order {
	fleet := d.Unit.Type == Fleet
	var out []*Order
	for _, dest := range m.ProvincesAdjacentTo(d.Unit.Province, d.Unit.Coast, fleet) {
		if s.UnitAt(dest) != nil {
			continue
		}
		if s.Contested[dest] {
			continue
		}
		if d.From != "" && dest == d.From {
			continue
		}
		p := m.Province(dest)
		if fleet && p.Kind == dipmap.Land {
			continue
		}
		if !fleet && p.Kind == dipmap.Sea {
			continue
		}
		if fleet && m.HasCoasts(dest) {
			for _, c := range m.FleetCoastsTo(d.Unit.Province, d.Unit.Coast, dest) {
				out = append(out, NewRetreat(d.Country, d.Unit.Province, dest, c))
			}
			continue
		}
		out = append(out, NewRetreat(d.Country, d.Unit.Province, dest, dipmap.NoCoast))
	}
	return out
}

// validateRetreat checks a submitted retreat against the open
// dislodgements.
func validateRetreat(o *Order, s *State, m *dipmap.Map) error {
	d := s.Dislodgements[o.Province]
	if d == nil {
		return errf(InvalidSubmission, "no dislodged unit at %s", o.Province)
	}
	if o.Country != "" && d.Country != o.Country {
		return errf(PermissionDenied, "dislodged unit at %s belongs to %s", o.Province, d.Country)
	}
	for _, valid := range ValidRetreats(s, m, d) {
		if valid.Dest == o.Dest && (o.DestCoast == dipmap.NoCoast || valid.DestCoast == o.DestCoast) {
			if o.DestCoast == dipmap.NoCoast && valid.DestCoast != dipmap.NoCoast {
				return errf(InvalidSubmission, "must name a coast of %s", o.Dest)
			}
			return nil
		}
	}
	return errf(InvalidSubmission, "cannot retreat from %s to %s", o.Province, o.Dest)
}
