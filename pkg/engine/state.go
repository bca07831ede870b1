package engine

import (
	"sort"

	"github.com/mveit/entente/pkg/dipmap"
)

// Season is the half-year a state covers.
type Season string

const (
	Spring Season = "spring"
	Fall   Season = "fall"
)

// NationState is one country's holdings within a State.
type NationState struct {
	SupplyCenters []string
	Units         []Unit
	Neutral       bool
	// ToBuild is centers minus units, populated at the start of the
	// adjustment phase. Positive: builds owed; negative: disbands owed.
	ToBuild int
}

// Dislodgement records a unit forced out of its province. From is the
// attacker's origin province, empty when the attacker arrived by convoy.
type Dislodgement struct {
	Unit    Unit
	From    string
	Country string
}

// State is one history entry: the board at one half-year half-phase cycle,
// plus the orders, retreats, dislodgements, and adjustments that close over
// it. Orders, retreats, and adjustments are tabled per country so that
// hidden-information projection is a plain map filter.
type State struct {
	Date          int
	Season        Season
	Nations       map[string]*NationState
	Orders        map[string]map[string]*Order
	Retreats      map[string]map[string]*Order
	Dislodgements map[string]*Dislodgement
	Adjustments   map[string][]*Order
	Contested     map[string]bool
}

// NewState returns an empty state for the given date and season.
func NewState(date int, season Season) *State {
	return &State{
		Date:          date,
		Season:        season,
		Nations:       make(map[string]*NationState),
		Orders:        make(map[string]map[string]*Order),
		Retreats:      make(map[string]map[string]*Order),
		Dislodgements: make(map[string]*Dislodgement),
		Adjustments:   make(map[string][]*Order),
		Contested:     make(map[string]bool),
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := NewState(s.Date, s.Season)
	for id, n := range s.Nations {
		nc := &NationState{
			SupplyCenters: append([]string(nil), n.SupplyCenters...),
			Units:         append([]Unit(nil), n.Units...),
			Neutral:       n.Neutral,
			ToBuild:       n.ToBuild,
		}
		c.Nations[id] = nc
	}
	for country, table := range s.Orders {
		ct := make(map[string]*Order, len(table))
		for prov, o := range table {
			oc := *o
			ct[prov] = &oc
		}
		c.Orders[country] = ct
	}
	for country, table := range s.Retreats {
		ct := make(map[string]*Order, len(table))
		for prov, o := range table {
			oc := *o
			ct[prov] = &oc
		}
		c.Retreats[country] = ct
	}
	for prov, d := range s.Dislodgements {
		dc := *d
		c.Dislodgements[prov] = &dc
	}
	for country, orders := range s.Adjustments {
		list := make([]*Order, len(orders))
		for i, o := range orders {
			oc := *o
			list[i] = &oc
		}
		c.Adjustments[country] = list
	}
	for prov := range s.Contested {
		c.Contested[prov] = true
	}
	return c
}

// UnitAt returns the unit occupying a province, or nil.
func (s *State) UnitAt(prov string) *Unit {
	for _, n := range s.Nations {
		for i := range n.Units {
			if n.Units[i].Province == prov {
				return &n.Units[i]
			}
		}
	}
	return nil
}

// CountryAt returns the country owning the unit at a province, or "".
func (s *State) CountryAt(prov string) string {
	if u := s.UnitAt(prov); u != nil {
		return u.Country
	}
	return ""
}

// OwnerOfSupplyCenter returns the country currently owning a supply
// center, or "".
func (s *State) OwnerOfSupplyCenter(prov string) string {
	for id, n := range s.Nations {
		for _, sc := range n.SupplyCenters {
			if sc == prov {
				return id
			}
		}
	}
	return ""
}

// UnitCount returns the number of units a country fields.
func (s *State) UnitCount(country string) int {
	if n := s.Nations[country]; n != nil {
		return len(n.Units)
	}
	return 0
}

// SupplyCenterCount returns the number of supply centers a country owns.
func (s *State) SupplyCenterCount(country string) int {
	if n := s.Nations[country]; n != nil {
		return len(n.SupplyCenters)
	}
	return 0
}

// TotalSupplyCenters counts supply centers across all countries.
func (s *State) TotalSupplyCenters() int {
	total := 0
	for _, n := range s.Nations {
		total += len(n.SupplyCenters)
	}
	return total
}

// SpawnUnit places a new unit on the board, enforcing occupancy and
// terrain invariants.
func (s *State) SpawnUnit(m *dipmap.Map, u Unit) error {
	p := m.Province(u.Province)
	if p == nil {
		return errf(NotFound, "no province %q", u.Province)
	}
	if s.UnitAt(u.Province) != nil {
		return errf(Internal, "province %s already occupied", u.Province)
	}
	if u.Type == Army && p.Kind == dipmap.Sea {
		return errf(Internal, "army spawned at sea in %s", u.Province)
	}
	if u.Type == Fleet && p.Kind == dipmap.Land {
		return errf(Internal, "fleet spawned inland in %s", u.Province)
	}
	if u.Type == Fleet && len(p.Coasts) > 0 && u.Coast == dipmap.NoCoast {
		return errf(Internal, "fleet in %s needs a coast", u.Province)
	}
	n := s.Nations[u.Country]
	if n == nil {
		return errf(NotFound, "no country %q", u.Country)
	}
	n.Units = append(n.Units, u)
	return nil
}

// RemoveUnit takes a country's unit off the board.
func (s *State) RemoveUnit(country, prov string) error {
	n := s.Nations[country]
	if n == nil {
		return errf(NotFound, "no country %q", country)
	}
	for i := range n.Units {
		if n.Units[i].Province == prov {
			n.Units = append(n.Units[:i], n.Units[i+1:]...)
			return nil
		}
	}
	return errf(NotFound, "%s has no unit at %s", country, prov)
}

// SetOrder stores or replaces a country's order for a province.
func (s *State) SetOrder(country string, o *Order) {
	table := s.Orders[country]
	if table == nil {
		table = make(map[string]*Order)
		s.Orders[country] = table
	}
	table[o.Province] = o
}

// ClearOrder drops a country's stored order for a province.
func (s *State) ClearOrder(country, prov string) {
	delete(s.Orders[country], prov)
}

// SetRetreat stores or replaces a country's retreat for a province.
func (s *State) SetRetreat(country string, o *Order) {
	table := s.Retreats[country]
	if table == nil {
		table = make(map[string]*Order)
		s.Retreats[country] = table
	}
	table[o.Province] = o
}

// ContestedList returns contested provinces in sorted order.
func (s *State) ContestedList() []string {
	out := make([]string, 0, len(s.Contested))
	for p := range s.Contested {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// check verifies the board invariants: one unit per province, units on
// legal terrain, supply-center ownership partitioned.
func (s *State) check(m *dipmap.Map) error {
	occupied := make(map[string]string)
	for country, n := range s.Nations {
		for _, u := range n.Units {
			p := m.Province(u.Province)
			if p == nil {
				return errf(Internal, "unit on unknown province %s", u.Province)
			}
			if prev, taken := occupied[u.Province]; taken {
				return errf(Internal, "province %s holds units of %s and %s", u.Province, prev, country)
			}
			occupied[u.Province] = country
			if u.Type == Army && p.Kind == dipmap.Sea {
				return errf(Internal, "army at sea in %s", u.Province)
			}
			if u.Type == Fleet && p.Kind == dipmap.Land {
				return errf(Internal, "fleet inland in %s", u.Province)
			}
			if u.Type == Fleet && len(p.Coasts) > 0 && u.Coast == dipmap.NoCoast {
				return errf(Internal, "fleet in %s has no coast", u.Province)
			}
		}
	}
	scOwner := make(map[string]string)
	for country, n := range s.Nations {
		for _, sc := range n.SupplyCenters {
			if prev, taken := scOwner[sc]; taken {
				return errf(Internal, "supply center %s owned by %s and %s", sc, prev, country)
			}
			scOwner[sc] = country
		}
	}
	return nil
}
