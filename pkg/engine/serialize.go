package engine

import (
	"encoding/json"

	"github.com/mveit/entente/pkg/dipmap"
)

// unitDoc is a unit's export form. Country comes from the enclosing nation
// key.
type unitDoc struct {
	Type     string `json:"type"`
	Province string `json:"province"`
	Coast    string `json:"coast,omitempty"`
}

func exportUnit(u Unit) unitDoc {
	return unitDoc{Type: u.Type.String(), Province: u.Province, Coast: string(u.Coast)}
}

func importUnit(d unitDoc, country string) Unit {
	ut := Army
	if d.Type == "fleet" {
		ut = Fleet
	}
	return Unit{Type: ut, Country: country, Province: d.Province, Coast: dipmap.Coast(d.Coast)}
}

type nationDoc struct {
	SupplyCenters []string  `json:"supplyCenters"`
	Units         []unitDoc `json:"units"`
	Neutral       bool      `json:"neutral,omitempty"`
	ToBuild       int       `json:"toBuild,omitempty"`
}

type dislodgementDoc struct {
	Unit    unitDoc `json:"unit"`
	From    string  `json:"from,omitempty"`
	Country string  `json:"country"`
}

type stateDoc struct {
	Date          int                          `json:"date"`
	Season        string                       `json:"season"`
	Nations       map[string]*nationDoc        `json:"nations"`
	Orders        map[string]map[string]*Order `json:"orders,omitempty"`
	Retreats      map[string]map[string]*Order `json:"retreats,omitempty"`
	Dislodgements map[string]*dislodgementDoc  `json:"dislodgements,omitempty"`
	Adjustments   map[string][]*Order          `json:"adjustments,omitempty"`
	Contested     []string                     `json:"contested,omitempty"`
}

// MarshalJSON serializes the state with contested provinces as a sorted
// list so output is byte-stable.
func (s *State) MarshalJSON() ([]byte, error) {
	d := stateDoc{
		Date:    s.Date,
		Season:  string(s.Season),
		Nations: make(map[string]*nationDoc, len(s.Nations)),
	}
	for id, n := range s.Nations {
		nd := &nationDoc{
			SupplyCenters: n.SupplyCenters,
			Units:         make([]unitDoc, len(n.Units)),
			Neutral:       n.Neutral,
			ToBuild:       n.ToBuild,
		}
		if nd.SupplyCenters == nil {
			nd.SupplyCenters = []string{}
		}
		for i, u := range n.Units {
			nd.Units[i] = exportUnit(u)
		}
		d.Nations[id] = nd
	}
	if len(s.Orders) > 0 {
		d.Orders = s.Orders
	}
	if len(s.Retreats) > 0 {
		d.Retreats = s.Retreats
	}
	if len(s.Dislodgements) > 0 {
		d.Dislodgements = make(map[string]*dislodgementDoc, len(s.Dislodgements))
		for prov, dl := range s.Dislodgements {
			d.Dislodgements[prov] = &dislodgementDoc{
				Unit:    exportUnit(dl.Unit),
				From:    dl.From,
				Country: dl.Country,
			}
		}
	}
	if len(s.Adjustments) > 0 {
		d.Adjustments = s.Adjustments
	}
	if len(s.Contested) > 0 {
		d.Contested = s.ContestedList()
	}
	return json.Marshal(d)
}

// UnmarshalJSON restores a state from its export form.
func (s *State) UnmarshalJSON(data []byte) error {
	var d stateDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	ns := NewState(d.Date, Season(d.Season))
	for id, nd := range d.Nations {
		n := &NationState{
			SupplyCenters: append([]string(nil), nd.SupplyCenters...),
			Neutral:       nd.Neutral,
			ToBuild:       nd.ToBuild,
		}
		if n.SupplyCenters == nil {
			n.SupplyCenters = []string{}
		}
		for _, ud := range nd.Units {
			n.Units = append(n.Units, importUnit(ud, id))
		}
		ns.Nations[id] = n
	}
	if d.Orders != nil {
		ns.Orders = d.Orders
	}
	if d.Retreats != nil {
		ns.Retreats = d.Retreats
	}
	for prov, dd := range d.Dislodgements {
		ns.Dislodgements[prov] = &Dislodgement{
			Unit:    importUnit(dd.Unit, dd.Country),
			From:    dd.From,
			Country: dd.Country,
		}
	}
	if d.Adjustments != nil {
		ns.Adjustments = d.Adjustments
	}
	for _, prov := range d.Contested {
		ns.Contested[prov] = true
	}
	*s = *ns
	return nil
}

type gameDoc struct {
	Phase   string            `json:"phase"`
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Map     string            `json:"map"`
	Users   []string          `json:"users"`
	Players map[string]string `json:"players"`
	Winner  string            `json:"winner,omitempty"`
	Won     string            `json:"won"`
	History []*State          `json:"history"`
}

// MarshalJSON serializes the game document. The board itself is not
// embedded; it is re-derived from the map name on load.
func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameDoc{
		Phase:   string(g.Phase),
		ID:      g.ID,
		Name:    g.Name,
		Map:     g.MapName,
		Users:   g.Users,
		Players: g.Players,
		Winner:  g.Winner,
		Won:     string(g.Won),
		History: g.History,
	})
}

// LoadGame restores a game from its serialized document, re-pruning the
// base map by the stored user count.
func LoadGame(data []byte, base *dipmap.Map) (*Game, error) {
	var d gameDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errf(InvalidSubmission, "bad game document: %v", err)
	}
	if len(d.History) == 0 {
		return nil, errf(InvalidSubmission, "game document has no history")
	}
	cfg, ok := base.PlayerConfiguration(len(d.Users))
	if !ok {
		return nil, errf(MapError, "map %s has no configuration for %d players", d.Map, len(d.Users))
	}
	g := &Game{
		ID:      d.ID,
		Name:    d.Name,
		MapName: d.Map,
		Users:   d.Users,
		Players: d.Players,
		Winner:  d.Winner,
		Won:     WonState(d.Won),
		Phase:   Phase(d.Phase),
		History: d.History,
		board:   base.Prune(cfg),
	}
	if g.Players == nil {
		g.Players = make(map[string]string)
	}
	return g, nil
}
