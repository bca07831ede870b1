package engine

import (
	"encoding/json"
	"fmt"

	"github.com/mveit/entente/pkg/dipmap"
)

// OrderKind tags the order variant.
type OrderKind string

const (
	Hold        OrderKind = "hold"
	Move        OrderKind = "move"
	SupportHold OrderKind = "supportHold"
	SupportMove OrderKind = "supportMove"
	Convoy      OrderKind = "convoy"
	Retreat     OrderKind = "retreat"
	Build       OrderKind = "build"
	Disband     OrderKind = "disband"
	Pass        OrderKind = "pass"
	Cancel      OrderKind = "cancel"
)

// Result describes the adjudicated outcome of an order.
type Result int

const (
	Unprocessed Result = iota
	Success
	Fail
	Dislodged
)

func (r Result) String() string {
	switch r {
	case Unprocessed:
		return "unprocessed"
	case Success:
		return "success"
	case Fail:
		return "fail"
	case Dislodged:
		return "dislodged"
	default:
		return "unknown"
	}
}

func resultFromString(s string) (Result, bool) {
	switch s {
	case "unprocessed", "":
		return Unprocessed, true
	case "success":
		return Success, true
	case "fail":
		return Fail, true
	case "dislodged":
		return Dislodged, true
	}
	return Unprocessed, false
}

// Order is a tagged variant covering every submission a country can make.
// Kind selects which of the case fields are meaningful:
//
//	Hold        : Province
//	Move        : Province, Dest, DestCoast, ViaConvoy
//	SupportHold : Province, Supporting
//	SupportMove : Province, Supporting (dest), From (origin)
//	Convoy      : Province, Start, End
//	Retreat     : Province, Dest, DestCoast
//	Build       : Country, Province, UnitType, BuildCoast
//	Disband     : Country, Province
//	Pass        : Country
//	Cancel      : Province
//
// Result is mutated by the resolvers and persisted in history.
type Order struct {
	Kind     OrderKind
	Country  string
	Province string

	Dest      string
	DestCoast dipmap.Coast
	ViaConvoy bool

	Supporting string
	From       string

	Start string
	End   string

	UnitType   UnitType
	BuildCoast dipmap.Coast

	Result Result
}

// NewHold orders the unit at province to hold.
func NewHold(country, province string) *Order {
	return &Order{Kind: Hold, Country: country, Province: province}
}

// NewMove orders the unit at province to move to dest.
func NewMove(country, province, dest string, coast dipmap.Coast, viaConvoy bool) *Order {
	return &Order{Kind: Move, Country: country, Province: province, Dest: dest, DestCoast: coast, ViaConvoy: viaConvoy}
}

// NewSupportHold orders the unit at province to support the unit holding at
// supporting.
func NewSupportHold(country, province, supporting string) *Order {
	return &Order{Kind: SupportHold, Country: country, Province: province, Supporting: supporting}
}

// NewSupportMove orders the unit at province to support the move from
// `from` into `supporting`.
func NewSupportMove(country, province, supporting, from string) *Order {
	return &Order{Kind: SupportMove, Country: country, Province: province, Supporting: supporting, From: from}
}

// NewConvoy orders the fleet at province to convoy the army moving
// start -> end.
func NewConvoy(country, province, start, end string) *Order {
	return &Order{Kind: Convoy, Country: country, Province: province, Start: start, End: end}
}

// NewRetreat orders the dislodged unit from province to retreat to dest.
func NewRetreat(country, province, dest string, coast dipmap.Coast) *Order {
	return &Order{Kind: Retreat, Country: country, Province: province, Dest: dest, DestCoast: coast}
}

// NewBuild orders a new unit of the given type at province.
func NewBuild(country, province string, ut UnitType, coast dipmap.Coast) *Order {
	return &Order{Kind: Build, Country: country, Province: province, UnitType: ut, BuildCoast: coast}
}

// NewDisband removes the country's unit at province.
func NewDisband(country, province string) *Order {
	return &Order{Kind: Disband, Country: country, Province: province}
}

// NewPass declines the country's remaining adjustments.
func NewPass(country string) *Order {
	return &Order{Kind: Pass, Country: country}
}

// NewCancel withdraws the stored order for province.
func NewCancel(country, province string) *Order {
	return &Order{Kind: Cancel, Country: country, Province: province}
}

// ID returns the order's stable identity string, deterministic in the
// order's fields. Used for logging and dependency identity.
func (o *Order) ID() string {
	switch o.Kind {
	case Hold:
		return fmt.Sprintf("hold:%s", o.Province)
	case Move:
		id := fmt.Sprintf("move:%s>%s", o.Province, o.Dest)
		if o.DestCoast != dipmap.NoCoast {
			id += "/" + string(o.DestCoast)
		}
		if o.ViaConvoy {
			id += ":vc"
		}
		return id
	case SupportHold:
		return fmt.Sprintf("shold:%s:%s", o.Province, o.Supporting)
	case SupportMove:
		return fmt.Sprintf("smove:%s:%s>%s", o.Province, o.From, o.Supporting)
	case Convoy:
		return fmt.Sprintf("convoy:%s:%s>%s", o.Province, o.Start, o.End)
	case Retreat:
		return fmt.Sprintf("retreat:%s>%s", o.Province, o.Dest)
	case Build:
		return fmt.Sprintf("build:%s:%s:%s", o.Country, o.Province, o.UnitType)
	case Disband:
		return fmt.Sprintf("disband:%s:%s", o.Country, o.Province)
	case Pass:
		return fmt.Sprintf("pass:%s", o.Country)
	case Cancel:
		return fmt.Sprintf("cancel:%s", o.Province)
	default:
		return "unknown"
	}
}

// Describe returns a human-readable description of the order.
func (o *Order) Describe() string {
	switch o.Kind {
	case Hold:
		return fmt.Sprintf("%s Hold", o.Province)
	case Move:
		dest := o.Dest
		if o.DestCoast != dipmap.NoCoast {
			dest += "/" + string(o.DestCoast)
		}
		if o.ViaConvoy {
			return fmt.Sprintf("%s -> %s via convoy", o.Province, dest)
		}
		return fmt.Sprintf("%s -> %s", o.Province, dest)
	case SupportHold:
		return fmt.Sprintf("%s S %s Hold", o.Province, o.Supporting)
	case SupportMove:
		return fmt.Sprintf("%s S %s -> %s", o.Province, o.From, o.Supporting)
	case Convoy:
		return fmt.Sprintf("%s C %s -> %s", o.Province, o.Start, o.End)
	case Retreat:
		return fmt.Sprintf("%s retreat %s", o.Province, o.Dest)
	case Build:
		return fmt.Sprintf("%s build %s %s", o.Country, o.UnitType, o.Province)
	case Disband:
		return fmt.Sprintf("%s disband %s", o.Country, o.Province)
	case Pass:
		return fmt.Sprintf("%s pass", o.Country)
	case Cancel:
		return fmt.Sprintf("cancel %s", o.Province)
	default:
		return "???"
	}
}

// orderDoc is the canonical export form: a flat JSON object with a type tag
// and only the fields the case uses.
type orderDoc struct {
	Type       string `json:"type"`
	Country    string `json:"country,omitempty"`
	Province   string `json:"province,omitempty"`
	Dest       string `json:"dest,omitempty"`
	Coast      string `json:"coast,omitempty"`
	IsConvoy   bool   `json:"isConvoy,omitempty"`
	Supporting string `json:"supporting,omitempty"`
	From       string `json:"from,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	UnitType   string `json:"unitType,omitempty"`
	Result     string `json:"result,omitempty"`
}

// MarshalJSON serializes the order in its canonical export form.
func (o *Order) MarshalJSON() ([]byte, error) {
	d := orderDoc{Type: string(o.Kind), Country: o.Country, Province: o.Province}
	switch o.Kind {
	case Move:
		d.Dest, d.Coast, d.IsConvoy = o.Dest, string(o.DestCoast), o.ViaConvoy
	case SupportHold:
		d.Supporting = o.Supporting
	case SupportMove:
		d.Supporting, d.From = o.Supporting, o.From
	case Convoy:
		d.Start, d.End = o.Start, o.End
	case Retreat:
		d.Dest, d.Coast = o.Dest, string(o.DestCoast)
	case Build:
		d.UnitType, d.Coast = o.UnitType.String(), string(o.BuildCoast)
	}
	if o.Result != Unprocessed {
		d.Result = o.Result.String()
	}
	return json.Marshal(d)
}

// UnmarshalJSON parses the canonical export form back into an order.
func (o *Order) UnmarshalJSON(data []byte) error {
	var d orderDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	kind := OrderKind(d.Type)
	switch kind {
	case Hold, Move, SupportHold, SupportMove, Convoy, Retreat, Build, Disband, Pass, Cancel:
	default:
		return fmt.Errorf("unknown order type %q", d.Type)
	}
	res, ok := resultFromString(d.Result)
	if !ok {
		return fmt.Errorf("unknown order result %q", d.Result)
	}
	*o = Order{
		Kind:       kind,
		Country:    d.Country,
		Province:   d.Province,
		Supporting: d.Supporting,
		From:       d.From,
		Start:      d.Start,
		End:        d.End,
		Result:     res,
	}
	switch kind {
	case Move:
		o.Dest, o.DestCoast, o.ViaConvoy = d.Dest, dipmap.Coast(d.Coast), d.IsConvoy
	case Retreat:
		o.Dest, o.DestCoast = d.Dest, dipmap.Coast(d.Coast)
	case Build:
		o.BuildCoast = dipmap.Coast(d.Coast)
		if d.UnitType == "fleet" {
			o.UnitType = Fleet
		}
	}
	return nil
}
