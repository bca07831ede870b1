package engine

import (
	"sort"

	"github.com/mveit/entente/pkg/dipmap"
)

// ReassignSupplyCenters transfers ownership of every supply center occupied
// by a unit to that unit's country, then recomputes each country's build
// quota. Unoccupied centers keep their owner. Called on entry to the
// adjustment phase.
func ReassignSupplyCenters(m *dipmap.Map, s *State) {
	for _, sc := range m.SupplyCenters() {
		u := s.UnitAt(sc)
		if u == nil {
			continue
		}
		owner := s.OwnerOfSupplyCenter(sc)
		if owner == u.Country {
			continue
		}
		if owner != "" {
			prev := s.Nations[owner]
			for i, p := range prev.SupplyCenters {
				if p == sc {
					prev.SupplyCenters = append(prev.SupplyCenters[:i], prev.SupplyCenters[i+1:]...)
					break
				}
			}
		}
		if n := s.Nations[u.Country]; n != nil {
			n.SupplyCenters = append(n.SupplyCenters, sc)
			sort.Strings(n.SupplyCenters)
		}
	}
	for _, n := range s.Nations {
		n.ToBuild = len(n.SupplyCenters) - len(n.Units)
	}
}

// ValidateAdjustment checks a build, disband, or pass order against the
// country's quota and the board. Quota violations are rejected here, at
// submit time, not deferred to adjudication.
func ValidateAdjustment(o *Order, s *State, m *dipmap.Map) error {
	n := s.Nations[o.Country]
	if n == nil {
		return errf(NotFound, "no country %q", o.Country)
	}
	switch o.Kind {
	case Pass:
		return nil
	case Build:
		if n.ToBuild <= 0 {
			return errf(InvalidSubmission, "%s has no builds owed", o.Country)
		}
		if quotaUsed(s.Adjustments[o.Country], Build) >= n.ToBuild {
			return errf(InvalidSubmission, "%s has already used its builds", o.Country)
		}
		return validateBuild(o, s, m)
	case Disband:
		if n.ToBuild >= 0 {
			return errf(InvalidSubmission, "%s owes no disbands", o.Country)
		}
		if quotaUsed(s.Adjustments[o.Country], Disband) >= -n.ToBuild {
			return errf(InvalidSubmission, "%s has already submitted its disbands", o.Country)
		}
		return validateDisband(o, s)
	default:
		return errf(InvalidSubmission, "order %s not legal during adjustments", o.Kind)
	}
}

func quotaUsed(orders []*Order, kind OrderKind) int {
	count := 0
	for _, o := range orders {
		if o.Kind == kind {
			count++
		}
	}
	return count
}

func validateBuild(o *Order, s *State, m *dipmap.Map) error {
	p := m.Province(o.Province)
	if p == nil {
		return errf(NotFound, "no province %q", o.Province)
	}
	if m.CountryOfSupplyCenter(o.Province) != o.Country {
		return errf(InvalidSubmission, "%s is not a home supply center of %s", o.Province, o.Country)
	}
	if s.OwnerOfSupplyCenter(o.Province) != o.Country {
		return errf(InvalidSubmission, "%s does not currently own %s", o.Country, o.Province)
	}
	if s.UnitAt(o.Province) != nil {
		return errf(InvalidSubmission, "%s is occupied", o.Province)
	}
	if o.UnitType == Fleet && p.Kind == dipmap.Land {
		return errf(InvalidSubmission, "cannot build a fleet inland at %s", o.Province)
	}
	if o.UnitType == Fleet && len(p.Coasts) > 0 && o.BuildCoast == dipmap.NoCoast {
		return errf(InvalidSubmission, "fleet build at %s must name a coast", o.Province)
	}
	return nil
}

func validateDisband(o *Order, s *State) error {
	u := s.UnitAt(o.Province)
	if u == nil {
		return errf(InvalidSubmission, "no unit at %s", o.Province)
	}
	if u.Country != o.Country {
		return errf(PermissionDenied, "unit at %s belongs to %s, not %s", o.Province, u.Country, o.Country)
	}
	return nil
}

// AdjudicateAdjustments applies the stored adjustment orders atomically and
// fills quota gaps: countries short of builds pass the remainder, countries
// short of disbands lose units farthest from home first. Results are
// stamped on the submitted orders.
func AdjudicateAdjustments(m *dipmap.Map, s *State) error {
	countries := make([]string, 0, len(s.Nations))
	for c := range s.Nations {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	for _, country := range countries {
		n := s.Nations[country]
		orders := s.Adjustments[country]
		for _, o := range orders {
			switch o.Kind {
			case Build:
				if err := s.SpawnUnit(m, Unit{
					Type:     o.UnitType,
					Country:  country,
					Province: o.Province,
					Coast:    o.BuildCoast,
				}); err != nil {
					return err
				}
				o.Result = Success
			case Disband:
				if err := s.RemoveUnit(country, o.Province); err != nil {
					return err
				}
				o.Result = Success
			case Pass:
				o.Result = Success
			}
		}
		if owed := -n.ToBuild - quotaUsed(orders, Disband); n.ToBuild < 0 && owed > 0 {
			auto, err := civilDisbands(m, s, country, owed)
			if err != nil {
				return err
			}
			s.Adjustments[country] = append(orders, auto...)
		}
	}
	return nil
}

// civilDisbands removes count of a country's units, farthest from any of
// its home supply centers first, ties broken by province id. Returns the
// synthetic Disband orders it applied.
func civilDisbands(m *dipmap.Map, s *State, country string, count int) ([]*Order, error) {
	n := s.Nations[country]
	c := m.Country(country)
	var homes []string
	if c != nil {
		homes = c.SupplyCenters
	}

	type entry struct {
		prov string
		dist int
	}
	entries := make([]entry, 0, len(n.Units))
	for _, u := range n.Units {
		entries = append(entries, entry{u.Province, distanceToAny(m, u.Province, homes)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].dist != entries[j].dist {
			return entries[i].dist > entries[j].dist
		}
		return entries[i].prov < entries[j].prov
	})

	var out []*Order
	for i := 0; i < count && i < len(entries); i++ {
		o := NewDisband(country, entries[i].prov)
		if err := s.RemoveUnit(country, entries[i].prov); err != nil {
			return nil, err
		}
		o.Result = Success
		out = append(out, o)
	}
	return out, nil
}

// distanceToAny is the BFS hop count over all routes from a province to the
// nearest of the given targets. Unreachable provinces get a distance
// larger than any reachable one.
func distanceToAny(m *dipmap.Map, from string, targets []string) int {
	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}
	if targetSet[from] {
		return 0
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for dist := 1; len(queue) > 0; dist++ {
		var next []string
		for _, cur := range queue {
			for _, adj := range m.Neighbors(cur) {
				if visited[adj] {
					continue
				}
				if targetSet[adj] {
					return dist
				}
				visited[adj] = true
				next = append(next, adj)
			}
		}
		queue = next
	}
	return m.ProvinceCount() + 1
}

// Winner returns the country owning more than half of all supply centers,
// or "" when no one has won yet.
func Winner(m *dipmap.Map, s *State) string {
	total := len(m.SupplyCenters())
	for country, n := range s.Nations {
		if n.Neutral {
			continue
		}
		if 2*len(n.SupplyCenters) > total {
			return country
		}
	}
	return ""
}
