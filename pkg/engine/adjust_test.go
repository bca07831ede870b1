package engine

import (
	"testing"

	"github.com/mveit/entente/pkg/dipmap"
)

func TestReassignSupplyCenters(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "germany", "war", dipmap.NoCoast})
	s.Nations["russia"].SupplyCenters = []string{"mos", "sev", "stp", "war"}
	s.Nations["germany"].SupplyCenters = []string{"ber", "kie", "mun"}

	ReassignSupplyCenters(m, s)

	if s.OwnerOfSupplyCenter("war") != "germany" {
		t.Error("Warsaw should belong to its occupier")
	}
	if s.SupplyCenterCount("russia") != 3 {
		t.Errorf("Russia should keep 3 centers, got %d", s.SupplyCenterCount("russia"))
	}
	if got := s.Nations["germany"].ToBuild; got != 3 {
		t.Errorf("Germany holds 4 centers with 1 unit, want ToBuild 3, got %d", got)
	}
	if got := s.Nations["russia"].ToBuild; got != 3 {
		t.Errorf("Russia holds 3 centers with no units, want ToBuild 3, got %d", got)
	}
}

func TestUnoccupiedCenterKeepsOwner(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	s.Nations["france"].SupplyCenters = []string{"bre", "mar", "par"}

	ReassignSupplyCenters(m, s)

	if s.OwnerOfSupplyCenter("par") != "france" {
		t.Error("unoccupied Paris should stay French")
	}
}

func TestValidateBuild(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	s.Nations["france"].SupplyCenters = []string{"bre", "mar", "par"}
	s.Nations["france"].ToBuild = 1

	if err := ValidateAdjustment(NewBuild("france", "par", Army, dipmap.NoCoast), s, m); err != nil {
		t.Errorf("army build in Paris should be valid: %v", err)
	}
	if err := ValidateAdjustment(NewBuild("france", "bre", Fleet, dipmap.NoCoast), s, m); err != nil {
		t.Errorf("fleet build in Brest should be valid: %v", err)
	}

	// Not a home center.
	err := ValidateAdjustment(NewBuild("france", "bel", Army, dipmap.NoCoast), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("build outside home centers should be invalid, got %v", err)
	}
	// Home center lost to another country.
	s.Nations["france"].SupplyCenters = []string{"bre", "mar"}
	s.Nations["germany"].SupplyCenters = []string{"par"}
	err = ValidateAdjustment(NewBuild("france", "par", Army, dipmap.NoCoast), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("build on a lost home center should be invalid, got %v", err)
	}
	// Fleet inland.
	s.Nations["france"].SupplyCenters = []string{"bre", "mar", "par"}
	s.Nations["germany"].SupplyCenters = nil
	err = ValidateAdjustment(NewBuild("france", "par", Fleet, dipmap.NoCoast), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("fleet build inland should be invalid, got %v", err)
	}
}

func TestBuildQuotaEnforcedAtSubmit(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	s.Nations["france"].SupplyCenters = []string{"bre", "mar", "par"}
	s.Nations["france"].ToBuild = 1
	s.Adjustments["france"] = []*Order{NewBuild("france", "par", Army, dipmap.NoCoast)}

	err := ValidateAdjustment(NewBuild("france", "mar", Army, dipmap.NoCoast), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("second build against a quota of one should be invalid, got %v", err)
	}
}

func TestValidateDisband(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "france", "par", dipmap.NoCoast}, Unit{Army, "france", "bur", dipmap.NoCoast})
	s.Nations["france"].SupplyCenters = []string{"bre"}
	s.Nations["france"].ToBuild = -1

	if err := ValidateAdjustment(NewDisband("france", "bur"), s, m); err != nil {
		t.Errorf("disband of an own unit should be valid: %v", err)
	}
	err := ValidateAdjustment(NewDisband("france", "mun"), s, m)
	if !IsKind(err, InvalidSubmission) {
		t.Errorf("disband of an empty province should be invalid, got %v", err)
	}
}

func TestAdjudicateAdjustmentsBuildsAndDisbands(t *testing.T) {
	m := board(t)
	s := stateWith(t, m, Unit{Army, "germany", "ruh", dipmap.NoCoast})
	s.Nations["france"].SupplyCenters = []string{"bre", "mar", "par"}
	s.Nations["france"].ToBuild = 3
	s.Nations["germany"].SupplyCenters = nil
	s.Nations["germany"].ToBuild = -1

	s.Adjustments["france"] = []*Order{
		NewBuild("france", "par", Army, dipmap.NoCoast),
		NewBuild("france", "bre", Fleet, dipmap.NoCoast),
		NewPass("france"),
	}
	s.Adjustments["germany"] = []*Order{NewDisband("germany", "ruh")}

	if err := AdjudicateAdjustments(m, s); err != nil {
		t.Fatalf("adjudicate adjustments: %v", err)
	}
	if s.UnitAt("par") == nil || s.UnitAt("bre") == nil {
		t.Error("both French builds should be on the board")
	}
	if s.UnitAt("ruh") != nil {
		t.Error("the German army should be disbanded")
	}
	for _, o := range s.Adjustments["france"] {
		if o.Result != Success {
			t.Errorf("adjustment %s should be stamped successful", o.Describe())
		}
	}
}

// Civil disorder: missing disbands remove units farthest from home,
// ties broken by province id.
func TestCivilDisorderDisbandsFarthestFirst(t *testing.T) {
	m := board(t)
	s := stateWith(t, m,
		Unit{Army, "austria", "vie", dipmap.NoCoast},
		Unit{Army, "austria", "mos", dipmap.NoCoast},
	)
	s.Nations["austria"].SupplyCenters = []string{"vie"}
	s.Nations["austria"].ToBuild = -1

	if err := AdjudicateAdjustments(m, s); err != nil {
		t.Fatalf("adjudicate adjustments: %v", err)
	}
	if s.UnitAt("mos") != nil {
		t.Error("the army farthest from home should disband")
	}
	if s.UnitAt("vie") == nil {
		t.Error("the army at home should survive")
	}
	auto := s.Adjustments["austria"]
	if len(auto) != 1 || auto[0].Kind != Disband || auto[0].Province != "mos" {
		t.Errorf("synthetic disband for Moscow expected, got %+v", auto)
	}
}

func TestWinner(t *testing.T) {
	m := board(t)
	s := stateWith(t, m)
	total := len(m.SupplyCenters())
	majority := total/2 + 1

	centers := m.SupplyCenters()[:majority]
	s.Nations["france"].SupplyCenters = append([]string(nil), centers...)

	if got := Winner(m, s); got != "france" {
		t.Errorf("France holds %d of %d centers, want winner france, got %q", majority, total, got)
	}

	s.Nations["france"].SupplyCenters = centers[:total/2]
	if got := Winner(m, s); got != "" {
		t.Errorf("no winner expected at half the centers, got %q", got)
	}
}
