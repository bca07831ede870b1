package dipmap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// MapError reports a corrupt or inconsistent map document.
type MapError struct {
	Map string // map name or path, if known
	Msg string
}

func (e *MapError) Error() string {
	if e.Map != "" {
		return fmt.Sprintf("map %s: %s", e.Map, e.Msg)
	}
	return "map: " + e.Msg
}

func mapErrf(name, format string, args ...any) error {
	return &MapError{Map: name, Msg: fmt.Sprintf(format, args...)}
}

// Wire shapes for the .dipmap JSON document.
type mapDoc struct {
	Info       infoDoc              `json:"info"`
	Provinces  []provinceDoc        `json:"provinces"`
	Routes     []routeDoc           `json:"routes"`
	Countries  []countryDoc         `json:"countries"`
	Groups     [][]string           `json:"countryGroups"`
	PlayerCfgs map[string]playerDoc `json:"playerConfigurations"`
}

type infoDoc struct {
	Name  string `json:"name"`
	Date  int    `json:"date"`
	Image string `json:"image"`
}

type provinceDoc struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Water        bool     `json:"water"`
	SupplyCenter bool     `json:"supplyCenter"`
	Coasts       []string `json:"coasts"`
	StartUnit    string   `json:"startUnit"`
	StartCoast   string   `json:"startCoast"`
}

type routeDoc struct {
	P0      string `json:"p0"`
	P1      string `json:"p1"`
	P0Coast string `json:"p0coast"`
	P1Coast string `json:"p1coast"`
	Type    string `json:"type"`
}

type countryDoc struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SupplyCenters []string `json:"supplyCenters"`
}

type playerDoc struct {
	Eliminate       []string `json:"eliminate"`
	RemoveProvinces bool     `json:"removeProvinces"`
}

// Load reads and parses a .dipmap file.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses a .dipmap document from a reader. The name is used in error
// messages only.
func Read(r io.Reader, name string) (*Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return Parse(data, name)
}

// Parse builds a Map from raw .dipmap JSON, validating structure along the
// way.
func Parse(data []byte, name string) (*Map, error) {
	var doc mapDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MapError{Map: name, Msg: "invalid JSON: " + err.Error()}
	}
	if doc.Info.Name != "" {
		name = doc.Info.Name
	}
	if len(doc.Provinces) == 0 {
		return nil, mapErrf(name, "no provinces")
	}
	if len(doc.Countries) == 0 {
		return nil, mapErrf(name, "no countries")
	}

	m := &Map{
		Info:          Info{Name: doc.Info.Name, Date: doc.Info.Date, Image: doc.Info.Image},
		provinces:     make(map[string]*Province, len(doc.Provinces)),
		edges:         make(map[string][]edge, len(doc.Provinces)),
		countries:     make(map[string]*Country, len(doc.Countries)),
		playerConfigs: make(map[int]PlayerConfiguration, len(doc.PlayerCfgs)),
		scOwner:       make(map[string]string),
	}

	for _, pd := range doc.Provinces {
		if pd.ID == "" {
			return nil, mapErrf(name, "province with empty id")
		}
		if _, dup := m.provinces[pd.ID]; dup {
			return nil, mapErrf(name, "duplicate province %q", pd.ID)
		}
		kind := ProvinceKind(pd.Kind)
		switch kind {
		case Land, Sea, Coastal:
		default:
			return nil, mapErrf(name, "province %q: unknown kind %q", pd.ID, pd.Kind)
		}
		if kind == Sea != pd.Water {
			return nil, mapErrf(name, "province %q: water flag disagrees with kind %q", pd.ID, pd.Kind)
		}
		start := StartUnit(pd.StartUnit)
		switch start {
		case StartNone, StartArmy, StartFleet:
		case "":
			start = StartNone
		default:
			return nil, mapErrf(name, "province %q: unknown startUnit %q", pd.ID, pd.StartUnit)
		}
		if start == StartArmy && kind == Sea {
			return nil, mapErrf(name, "province %q: army cannot start at sea", pd.ID)
		}
		if start == StartFleet && kind == Land {
			return nil, mapErrf(name, "province %q: fleet cannot start inland", pd.ID)
		}
		coasts := make([]Coast, 0, len(pd.Coasts))
		for _, c := range pd.Coasts {
			coasts = append(coasts, Coast(c))
		}
		if len(coasts) == 1 {
			return nil, mapErrf(name, "province %q: split-coast province needs at least two coasts", pd.ID)
		}
		startCoast := Coast(pd.StartCoast)
		if start == StartFleet && len(coasts) > 0 {
			if !coastIn(coasts, startCoast) {
				return nil, mapErrf(name, "province %q: start fleet needs a coast from %v", pd.ID, pd.Coasts)
			}
		}
		p := &Province{
			ID:           pd.ID,
			Name:         pd.Name,
			Kind:         kind,
			Water:        pd.Water,
			SupplyCenter: pd.SupplyCenter,
			Coasts:       coasts,
			StartUnit:    start,
			StartCoast:   startCoast,
		}
		m.provinces[p.ID] = p
		m.provOrder = append(m.provOrder, p.ID)
	}
	m.provIndex = make(map[string]int, len(m.provOrder))
	for i, id := range m.provOrder {
		m.provIndex[id] = i
	}

	for i, rd := range doc.Routes {
		kind := RouteKind(rd.Type)
		switch kind {
		case LandRoute, SeaRoute, ConvoyRoute:
		default:
			return nil, mapErrf(name, "route %d: unknown type %q", i, rd.Type)
		}
		for _, end := range []struct {
			prov  string
			coast string
		}{{rd.P0, rd.P0Coast}, {rd.P1, rd.P1Coast}} {
			p, ok := m.provinces[end.prov]
			if !ok {
				return nil, mapErrf(name, "route %d: unknown province %q", i, end.prov)
			}
			if end.coast != "" && !coastIn(p.Coasts, Coast(end.coast)) {
				return nil, mapErrf(name, "route %d: province %q has no coast %q", i, end.prov, end.coast)
			}
		}
		m.edges[rd.P0] = append(m.edges[rd.P0], edge{
			to: rd.P1, fromCoast: Coast(rd.P0Coast), toCoast: Coast(rd.P1Coast), kind: kind,
		})
		m.edges[rd.P1] = append(m.edges[rd.P1], edge{
			to: rd.P0, fromCoast: Coast(rd.P1Coast), toCoast: Coast(rd.P0Coast), kind: kind,
		})
	}

	for _, cd := range doc.Countries {
		if cd.ID == "" {
			return nil, mapErrf(name, "country with empty id")
		}
		if _, dup := m.countries[cd.ID]; dup {
			return nil, mapErrf(name, "duplicate country %q", cd.ID)
		}
		for _, sc := range cd.SupplyCenters {
			p, ok := m.provinces[sc]
			if !ok {
				return nil, mapErrf(name, "country %q: unknown supply center %q", cd.ID, sc)
			}
			if !p.SupplyCenter {
				return nil, mapErrf(name, "country %q: province %q is not a supply center", cd.ID, sc)
			}
			if prev, taken := m.scOwner[sc]; taken {
				return nil, mapErrf(name, "supply center %q claimed by both %q and %q", sc, prev, cd.ID)
			}
			m.scOwner[sc] = cd.ID
		}
		c := &Country{ID: cd.ID, Name: cd.Name, SupplyCenters: cd.SupplyCenters}
		m.countries[c.ID] = c
		m.countryOrder = append(m.countryOrder, c.ID)
	}

	for _, g := range doc.Groups {
		for _, id := range g {
			if _, ok := m.countries[id]; !ok {
				return nil, mapErrf(name, "country group references unknown country %q", id)
			}
		}
		m.countryGroups = append(m.countryGroups, g)
	}

	for key, pd := range doc.PlayerCfgs {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			return nil, mapErrf(name, "bad player configuration key %q", key)
		}
		for _, id := range pd.Eliminate {
			if _, ok := m.countries[id]; !ok {
				return nil, mapErrf(name, "player configuration %d eliminates unknown country %q", n, id)
			}
		}
		if len(m.countryOrder)-len(pd.Eliminate) != n {
			return nil, mapErrf(name, "player configuration %d leaves %d countries", n, len(m.countryOrder)-len(pd.Eliminate))
		}
		m.playerConfigs[n] = PlayerConfiguration{
			Players:         n,
			Eliminate:       pd.Eliminate,
			RemoveProvinces: pd.RemoveProvinces,
		}
	}

	return m, nil
}

func coastIn(coasts []Coast, c Coast) bool {
	for _, x := range coasts {
		if x == c {
			return true
		}
	}
	return false
}
