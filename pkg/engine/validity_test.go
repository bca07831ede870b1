package engine

import (
	"testing"

	"github.com/mveit/entente/pkg/dipmap"
)

// 6.A.1: moving to a non-adjacent province is rejected at submit time.
func TestDATC_6A1_MoveToNonAdjacentRejected(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Fleet, "england", "nth", dipmap.NoCoast})
	err := ValidateOrder(NewMove("england", "nth", "pic", dipmap.NoCoast, false), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("fleet North Sea to Picardy should be invalid, got %v", err)
	}
}

// 6.A.2: an army cannot move to sea.
func TestDATC_6A2_ArmyToSeaRejected(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "england", "lvp", dipmap.NoCoast})
	err := ValidateOrder(NewMove("england", "lvp", "iri", dipmap.NoCoast, false), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("army to Irish Sea should be invalid, got %v", err)
	}
}

// 6.A.3: a fleet cannot move inland.
func TestDATC_6A3_FleetInlandRejected(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Fleet, "germany", "kie", dipmap.NoCoast})
	err := ValidateOrder(NewMove("germany", "kie", "mun", dipmap.NoCoast, false), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("fleet to Munich should be invalid, got %v", err)
	}
}

func TestValidateOrderNoUnit(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	err := ValidateOrder(NewHold("france", "par"), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("ordering an empty province should be invalid, got %v", err)
	}
}

func TestValidateOrderWrongCountry(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "france", "par", dipmap.NoCoast})
	err := ValidateOrder(NewHold("germany", "par"), s, m)
	if !IsKind(err, PermissionDenied) {
		t.Errorf("ordering a foreign unit should be denied, got %v", err)
	}
}

// A convoyed move is legal when a chain of fleets could carry it.
func TestValidateConvoyedMove(t *testing.T) {
	m := board(t)
	s := stateWith(t, m,
		Unit{Army, "england", "lon", dipmap.NoCoast},
		Unit{Fleet, "england", "nth", dipmap.NoCoast},
	)
	if err := ValidateOrder(NewMove("england", "lon", "nwy", dipmap.NoCoast, true), s, m); err != nil {
		t.Errorf("convoyed move London to Norway should be valid: %v", err)
	}
}

func TestValidateConvoyedMoveWithoutFleet(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "england", "lon", dipmap.NoCoast})
	err := ValidateOrder(NewMove("england", "lon", "nwy", dipmap.NoCoast, true), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("convoyed move without any fleet should be invalid, got %v", err)
	}
}

// A fleet moving to a split-coast province must name a reachable coast.
func TestValidateFleetCoast(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Fleet, "france", "mao", dipmap.NoCoast})

	if err := ValidateOrder(NewMove("france", "mao", "spa", dipmap.NorthCoast, false), s, m); err != nil {
		t.Errorf("MAO to Spain north coast should be valid: %v", err)
	}
	if err := ValidateOrder(NewMove("france", "mao", "spa", dipmap.SouthCoast, false), s, m); err != nil {
		t.Errorf("MAO to Spain south coast should be valid: %v", err)
	}
}

func TestValidateSupportMove(t *testing.T) {
	m := board(t)
	s := stateWith(t, m,
		Unit{Army, "austria", "tyr", dipmap.NoCoast},
		Unit{Army, "austria", "tri", dipmap.NoCoast},
	)
	if err := ValidateOrder(NewSupportMove("austria", "tyr", "ven", "tri"), s, m); err != nil {
		t.Errorf("Tyrolia support Trieste to Venice should be valid: %v", err)
	}
	// Supporter must be able to reach the destination itself.
	err := ValidateOrder(NewSupportMove("austria", "tri", "mun", "tyr"), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("Trieste cannot support into Munich, got %v", err)
	}
}

func TestValidateConvoyOrder(t *testing.T) {
	m := board(t)
	s := stateWith(t, m,
		Unit{Fleet, "england", "nth", dipmap.NoCoast},
		Unit{Army, "england", "lon", dipmap.NoCoast},
	)
	if err := ValidateOrder(NewConvoy("england", "nth", "lon", "nwy"), s, m); err != nil {
		t.Errorf("North Sea convoying London to Norway should be valid: %v", err)
	}
	// Only fleets at sea convoy.
	s2 := stateWith(t, m,
		Unit{Army, "england", "yor", dipmap.NoCoast},
		Unit{Army, "england", "lon", dipmap.NoCoast},
	)
	err := ValidateOrder(NewConvoy("england", "yor", "lon", "nwy"), s2, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("an army cannot convoy, got %v", err)
	}
}

func TestValidOrdersIncludesHoldAndMoves(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "france", "par", dipmap.NoCoast})
	orders, err := ValidOrders(s, m, "par")
	if err != nil {
		t.Fatalf("valid orders: %v", err)
	}
	var hold bool
	dests := map[string]bool{}
	for _, o := range orders {
		if o.Kind == Hold {
			hold = true
		}
		if o.Kind == Move {
			dests[o.Dest] = true
		}
	}
	if !hold {
		t.Error("hold should always be a valid order")
	}
	for _, want := range []string{"bur", "pic", "bre", "gas"} {
		if !dests[want] {
			t.Errorf("Paris should be able to move to %s", want)
		}
	}
}

func TestValidRetreatsExcludesContestedAndOrigin(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "germany", "mun", dipmap.NoCoast})
	s.Contested["boh"] = true
	d := &Dislodgement{
		Unit:    Unit{Army, "russia", "sil", dipmap.NoCoast},
		From:    "war",
		Country: "russia",
	}
	s.Dislodgements["sil"] = d

	dests := map[string]bool{}
	for _, o := range ValidRetreats(s, m, d) {
		dests[o.Dest] = true
	}
	if dests["war"] {
		t.Error("retreat to the attacker's origin must not be offered")
	}
	if dests["boh"] {
		t.Error("retreat to a contested province must not be offered")
	}
	if dests["mun"] {
		t.Error("retreat to an occupied province must not be offered")
	}
	for _, want := range []string{"ber", "pru", "gal"} {
		if !dests[want] {
			t.Errorf("retreat to %s should be offered", want)
		}
	}
}

// A convoyed attacker leaves the origin province open for retreats.
func TestValidRetreatsAllowsOriginAfterConvoy(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	d := &Dislodgement{
		Unit:    Unit{Army, "france", "bel", dipmap.NoCoast},
		From:    "",
		Country: "france",
	}
	s.Dislodgements["bel"] = d

	dests := map[string]bool{}
	for _, o := range ValidRetreats(s, m, d) {
		dests[o.Dest] = true
	}
	if len(dests) == 0 {
		t.Fatal("expected retreat options from Belgium")
	}
}
