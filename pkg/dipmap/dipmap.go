// Package dipmap models a Diplomacy board: the province graph with its
// coast-aware and coast-agnostic adjacency relations, countries with their
// initial supply centers, and the player configurations that prune the board
// for smaller games. Maps are loaded from .dipmap JSON documents and treated
// as immutable once built.
package dipmap

// ProvinceKind classifies a province as land, sea, or coastal.
type ProvinceKind string

const (
	Land    ProvinceKind = "land"
	Sea     ProvinceKind = "sea"
	Coastal ProvinceKind = "coastal"
)

// Coast names a specific coast of a split-coast province.
type Coast string

const (
	NoCoast    Coast = ""
	NorthCoast Coast = "nc"
	SouthCoast Coast = "sc"
	EastCoast  Coast = "ec"
	WestCoast  Coast = "wc"
)

// StartUnit says which unit, if any, begins the game on a province.
type StartUnit string

const (
	StartNone  StartUnit = "none"
	StartArmy  StartUnit = "army"
	StartFleet StartUnit = "fleet"
)

// RouteKind classifies a route as land-compatible (armies), sea-compatible
// (fleets), or convoy-only (counts for convoy path existence but carries no
// unit movement).
type RouteKind string

const (
	LandRoute   RouteKind = "land"
	SeaRoute    RouteKind = "sea"
	ConvoyRoute RouteKind = "convoy"
)

// Province is one node of the board graph.
type Province struct {
	ID           string
	Name         string
	Kind         ProvinceKind
	Water        bool
	SupplyCenter bool
	Coasts       []Coast
	StartUnit    StartUnit
	StartCoast   Coast
}

// Route is an undirected adjacency between two provinces, optionally
// qualified by a coast on either endpoint.
type Route struct {
	P0      string
	P1      string
	P0Coast Coast
	P1Coast Coast
	Kind    RouteKind
}

// Country is a playable power with its initial (home) supply centers.
type Country struct {
	ID            string
	Name          string
	SupplyCenters []string
}

// PlayerConfiguration describes the board adjustment for a given player
// count: which countries are eliminated before play, and whether their
// provinces are removed from the board or left as neutral terrain.
type PlayerConfiguration struct {
	Players         int
	Eliminate       []string
	RemoveProvinces bool
}

// Info carries map-level metadata.
type Info struct {
	Name  string
	Date  int
	Image string
}

// edge is one direction of a route, indexed by source province.
type edge struct {
	to        string
	fromCoast Coast
	toCoast   Coast
	kind      RouteKind
}

// Map holds the full province and adjacency graph plus country data.
// Construct via Load or Parse; a Map must not be mutated after construction.
type Map struct {
	Info          Info
	provinces     map[string]*Province
	edges         map[string][]edge
	countries     map[string]*Country
	countryOrder  []string
	countryGroups [][]string
	playerConfigs map[int]PlayerConfiguration
	provIndex     map[string]int
	provOrder     []string
	scOwner       map[string]string
}

// ProvinceCount returns the number of provinces on the board.
func (m *Map) ProvinceCount() int { return len(m.provOrder) }

// Province returns the province with the given id, or nil.
func (m *Map) Province(id string) *Province { return m.provinces[id] }

// Provinces returns all province ids in deterministic order: the order in
// which the map document lists them.
func (m *Map) Provinces() []string { return m.provOrder }

// ProvinceIndex returns the dense index (0..ProvinceCount-1) for a province
// id, or -1 if the province is not on the board.
func (m *Map) ProvinceIndex(id string) int {
	idx, ok := m.provIndex[id]
	if !ok {
		return -1
	}
	return idx
}

// ProvinceID returns the province id for a dense index.
func (m *Map) ProvinceID(idx int) string { return m.provOrder[idx] }

// HasCoasts reports whether a province has split coasts.
func (m *Map) HasCoasts(id string) bool {
	p, ok := m.provinces[id]
	return ok && len(p.Coasts) > 0
}

// Adjacent reports whether a unit can move from src to dst given the coast
// constraints. Fleets traverse sea routes, armies land routes.
func (m *Map) Adjacent(src string, srcCoast Coast, dst string, dstCoast Coast, fleet bool) bool {
	for _, e := range m.edges[src] {
		if e.to != dst {
			continue
		}
		if fleet && e.kind != SeaRoute {
			continue
		}
		if !fleet && e.kind != LandRoute {
			continue
		}
		if srcCoast != NoCoast && e.fromCoast != NoCoast && e.fromCoast != srcCoast {
			continue
		}
		if dstCoast != NoCoast && e.toCoast != NoCoast && e.toCoast != dstCoast {
			continue
		}
		return true
	}
	return false
}

// AdjacentIgnoreCoasts reports whether two provinces share any route at all,
// regardless of coast or route kind. Convoy path existence uses this
// relation.
func (m *Map) AdjacentIgnoreCoasts(src, dst string) bool {
	for _, e := range m.edges[src] {
		if e.to == dst {
			return true
		}
	}
	return false
}

// Neighbors returns all province ids sharing any route with src, ignoring
// coasts, in first-seen order.
func (m *Map) Neighbors(src string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.edges[src] {
		if !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	return out
}

// FleetCoastsTo returns the destination coasts reachable by fleet from the
// given source province and coast.
func (m *Map) FleetCoastsTo(src string, srcCoast Coast, dst string) []Coast {
	var coasts []Coast
	for _, e := range m.edges[src] {
		if e.to != dst || e.kind != SeaRoute {
			continue
		}
		if srcCoast != NoCoast && e.fromCoast != NoCoast && e.fromCoast != srcCoast {
			continue
		}
		coasts = append(coasts, e.toCoast)
	}
	return coasts
}

// ProvincesAdjacentTo returns all province ids reachable in one step from
// the given province by the given unit type.
func (m *Map) ProvincesAdjacentTo(src string, coast Coast, fleet bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.edges[src] {
		if fleet && e.kind != SeaRoute {
			continue
		}
		if !fleet && e.kind != LandRoute {
			continue
		}
		if coast != NoCoast && e.fromCoast != NoCoast && e.fromCoast != coast {
			continue
		}
		if !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	return out
}

// Country returns the country with the given id, or nil.
func (m *Map) Country(id string) *Country { return m.countries[id] }

// Countries returns all country ids in document order.
func (m *Map) Countries() []string { return m.countryOrder }

// CountryOfSupplyCenter returns the country whose home supply center the
// province is, or "" for neutral or non-center provinces.
func (m *Map) CountryOfSupplyCenter(prov string) string { return m.scOwner[prov] }

// SupplyCenters returns all supply-center province ids in board order.
func (m *Map) SupplyCenters() []string {
	var out []string
	for _, id := range m.provOrder {
		if m.provinces[id].SupplyCenter {
			out = append(out, id)
		}
	}
	return out
}

// CountryGroup returns the group of countries that must be claimed together
// with the given country. A country outside any group is its own group.
func (m *Map) CountryGroup(country string) []string {
	for _, g := range m.countryGroups {
		for _, id := range g {
			if id == country {
				return g
			}
		}
	}
	if _, ok := m.countries[country]; ok {
		return []string{country}
	}
	return nil
}

// PlayerConfiguration returns the board adjustment for the given player
// count.
func (m *Map) PlayerConfiguration(players int) (PlayerConfiguration, bool) {
	cfg, ok := m.playerConfigs[players]
	return cfg, ok
}

// PlayerCounts returns the player counts the map defines configurations
// for, ascending.
func (m *Map) PlayerCounts() []int {
	var out []int
	for n := range m.playerConfigs {
		out = append(out, n)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Prune derives a reduced view of the map for a player configuration:
// eliminated countries are dropped, and their home provinces are either
// removed from the board (with every route touching them) or left in place
// as neutral terrain. The receiver is not modified.
func (m *Map) Prune(cfg PlayerConfiguration) *Map {
	gone := make(map[string]bool, len(cfg.Eliminate))
	for _, c := range cfg.Eliminate {
		gone[c] = true
	}
	removedProv := make(map[string]bool)
	if cfg.RemoveProvinces {
		for _, c := range cfg.Eliminate {
			if country := m.countries[c]; country != nil {
				for _, p := range country.SupplyCenters {
					removedProv[p] = true
				}
			}
		}
	}

	out := &Map{
		Info:          m.Info,
		provinces:     make(map[string]*Province, len(m.provinces)),
		edges:         make(map[string][]edge, len(m.edges)),
		countries:     make(map[string]*Country, len(m.countries)),
		playerConfigs: m.playerConfigs,
		scOwner:       make(map[string]string, len(m.scOwner)),
	}
	for _, id := range m.provOrder {
		if removedProv[id] {
			continue
		}
		p := *m.provinces[id]
		if owner := m.scOwner[id]; owner != "" && gone[owner] {
			p.StartUnit = StartNone
			p.StartCoast = NoCoast
		}
		out.provinces[id] = &p
		out.provOrder = append(out.provOrder, id)
	}
	for src, es := range m.edges {
		if removedProv[src] {
			continue
		}
		for _, e := range es {
			if !removedProv[e.to] {
				out.edges[src] = append(out.edges[src], e)
			}
		}
	}
	for _, id := range m.countryOrder {
		if gone[id] {
			continue
		}
		out.countries[id] = m.countries[id]
		out.countryOrder = append(out.countryOrder, id)
	}
	for _, g := range m.countryGroups {
		var kept []string
		for _, id := range g {
			if !gone[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			out.countryGroups = append(out.countryGroups, kept)
		}
	}
	for p, c := range m.scOwner {
		if !gone[c] && !removedProv[p] {
			out.scOwner[p] = c
		}
	}
	out.provIndex = make(map[string]int, len(out.provOrder))
	for i, id := range out.provOrder {
		out.provIndex[id] = i
	}
	return out
}
