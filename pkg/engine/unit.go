// Package engine implements the Diplomacy rules core: order validity, the
// adjudicator, retreat and adjustment resolution, and the phase machine that
// drives a game from country claiming through order writing, retreats, and
// builds. The engine is deterministic and single-threaded per game; callers
// provide a dipmap.Map and drive transitions through the Game type.
package engine

import "github.com/mveit/entente/pkg/dipmap"

// UnitType represents the type of a military unit.
type UnitType int

const (
	Army UnitType = iota
	Fleet
)

func (u UnitType) String() string {
	if u == Army {
		return "army"
	}
	return "fleet"
}

// Unit represents a single military unit on the board. Country is the map
// country id of its owner.
type Unit struct {
	Type     UnitType
	Country  string
	Province string
	Coast    dipmap.Coast // Only set for fleets on split-coast provinces
}
