package engine

import (
	"sort"

	"github.com/mveit/entente/pkg/dipmap"
)

// Resolution state constants for the Kruijswijk algorithm.
type resolutionState int

const (
	rsUnresolved resolutionState = iota
	rsGuessing
	rsResolved
)

// adjOrder tracks the resolution of a single order in the dependency graph.
type adjOrder struct {
	order      *Order
	unit       Unit
	state      resolutionState
	resolution bool // true = succeeds, false = fails
}

// resolver adjudicates one movement phase. Orders are flattened to an
// indexed array; index order is the canonical tie-break everywhere, so the
// same input always yields the same answer. deps is the shared dependency
// stack of orders currently under a guess.
type resolver struct {
	m      *dipmap.Map
	s      *State
	orders []adjOrder
	byProv map[string]int
	deps   []int
	// backups counts backup-rule invocations; each one strictly shrinks
	// the unresolved set, so exceeding the order count means a paradox
	// class the rules don't cover.
	backups int
	err     error
}

// MovementOutcome is what a movement adjudication produces besides the
// result stamps on the orders themselves.
type MovementOutcome struct {
	// Dislodgements keyed by the victim's province.
	Dislodgements map[string]*Dislodgement
	// Contested provinces: standoff destinations retreats may not enter.
	Contested map[string]bool
	// moves holds the successful movers, applied by ApplyMoves.
	moves []int
	res   *resolver
}

// AdjudicateMoves resolves a complete set of movement-phase orders against
// the board in s. Every order gets its Result stamped (success, fail, or
// dislodged); the returned outcome carries dislodgements and contested
// provinces. The state itself is not modified; call ApplyMoves on a copy.
func AdjudicateMoves(m *dipmap.Map, s *State, orders []*Order) (*MovementOutcome, error) {
	r := newResolver(m, s, orders)
	for i := range r.orders {
		r.resolve(i)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.buildOutcome(), nil
}

func newResolver(m *dipmap.Map, s *State, orders []*Order) *resolver {
	r := &resolver{
		m:      m,
		s:      s,
		orders: make([]adjOrder, 0, len(orders)),
		byProv: make(map[string]int, len(orders)),
	}
	for _, o := range orders {
		u := s.UnitAt(o.Province)
		if u == nil {
			continue
		}
		r.byProv[o.Province] = len(r.orders)
		r.orders = append(r.orders, adjOrder{order: o, unit: *u})
	}
	return r
}

// at returns the order index for a province, or -1.
func (r *resolver) at(prov string) int {
	if i, ok := r.byProv[prov]; ok {
		return i
	}
	return -1
}

// resolve returns whether order i succeeds, guessing through dependency
// cycles and invoking the backup rules when a cycle has no unique answer.
func (r *resolver) resolve(i int) bool {
	o := &r.orders[i]
	switch o.state {
	case rsResolved:
		return o.resolution
	case rsGuessing:
		r.deps = append(r.deps, i)
		return o.resolution
	}

	for {
		oldDeps := len(r.deps)

		o.state = rsGuessing
		o.resolution = false
		r1 := r.adjudicate(i)

		if len(r.deps) == oldDeps {
			// No cycle: the answer did not depend on the guess.
			if o.state != rsResolved {
				o.state = rsResolved
				o.resolution = r1
			}
			return r1
		}

		if r.deps[oldDeps] != i {
			// Part of a larger cycle headed elsewhere; stay guessed and
			// let the head sort it out.
			r.deps = append(r.deps, i)
			o.resolution = r1
			return r1
		}

		// Cycle head: rewind and try the opposite guess.
		for len(r.deps) > oldDeps {
			j := r.deps[len(r.deps)-1]
			r.deps = r.deps[:len(r.deps)-1]
			r.orders[j].state = rsUnresolved
		}
		o.state = rsGuessing
		o.resolution = true
		r2 := r.adjudicate(i)

		if r1 == r2 {
			// Both guesses agree: unique answer.
			for len(r.deps) > oldDeps {
				j := r.deps[len(r.deps)-1]
				r.deps = r.deps[:len(r.deps)-1]
				if j != i {
					r.orders[j].state = rsUnresolved
				}
			}
			o.state = rsResolved
			o.resolution = r1
			return r1
		}

		// Zero or two consistent outcomes: apply a backup rule to the
		// cycle and start over.
		r.backups++
		if r.backups > len(r.orders) {
			r.err = errf(Internal, "adjudication did not converge on %s", o.order.Describe())
			o.state = rsResolved
			o.resolution = false
			return false
		}
		r.backupRule(oldDeps)
		if o.state == rsResolved {
			return o.resolution
		}
	}
}

// backupRule classifies the cycle on deps[from:] and forces a resolution:
// a cycle carrying a convoyed move together with a convoy order for it is a
// convoy paradox (the convoys and convoyed moves all fail); any other cycle
// is circular movement (the moves all succeed). Remaining cycle members go
// back to unresolved.
func (r *resolver) backupRule(from int) {
	cycle := r.deps[from:]

	paradox := false
	for _, j := range cycle {
		c := &r.orders[j]
		if c.order.Kind != Convoy {
			continue
		}
		for _, k := range cycle {
			mo := &r.orders[k]
			if mo.order.Kind == Move && r.needsConvoy(mo) &&
				c.order.Start == mo.order.Province && c.order.End == mo.order.Dest {
				paradox = true
			}
		}
	}

	for _, j := range cycle {
		o := &r.orders[j]
		switch {
		case paradox && o.order.Kind == Convoy:
			o.state = rsResolved
			o.resolution = false
		case paradox && o.order.Kind == Move && r.needsConvoy(o):
			o.state = rsResolved
			o.resolution = false
		case !paradox && o.order.Kind == Move:
			o.state = rsResolved
			o.resolution = true
		default:
			o.state = rsUnresolved
		}
	}
	r.deps = r.deps[:from]
}

// adjudicate computes order i's tentative outcome under the current guesses.
func (r *resolver) adjudicate(i int) bool {
	switch r.orders[i].order.Kind {
	case Hold:
		return true
	case Move:
		return r.adjudicateMove(i)
	case SupportHold, SupportMove:
		return r.adjudicateSupport(i)
	case Convoy:
		return r.adjudicateConvoy(i)
	default:
		return false
	}
}

func (r *resolver) adjudicateMove(i int) bool {
	o := &r.orders[i]
	if r.needsConvoy(o) && !r.hasConvoyPath(o) {
		return false
	}

	attack := r.attackStrength(i)

	if opp := r.headToHead(i); opp >= 0 {
		if attack <= r.defendStrength(opp) {
			return false
		}
	} else if attack <= r.holdStrength(o.order.Dest) {
		return false
	}

	for j := range r.orders {
		other := &r.orders[j]
		if j == i || other.order.Kind != Move || other.order.Dest != o.order.Dest {
			continue
		}
		if attack <= r.preventStrength(j) {
			return false
		}
	}
	return true
}

// headToHead returns the index of the non-convoyed move swapping provinces
// with move i, or -1. Convoyed units pass over the head-to-head battle.
func (r *resolver) headToHead(i int) int {
	o := &r.orders[i]
	if r.needsConvoy(o) {
		return -1
	}
	j := r.at(o.order.Dest)
	if j < 0 {
		return -1
	}
	opp := &r.orders[j]
	if opp.order.Kind != Move || opp.order.Dest != o.order.Province || r.needsConvoy(opp) {
		return -1
	}
	return j
}

func (r *resolver) adjudicateSupport(i int) bool {
	o := &r.orders[i]
	into := o.order.Supporting
	for j := range r.orders {
		att := &r.orders[j]
		if att.order.Kind != Move || att.order.Dest != o.order.Province {
			continue
		}
		if att.unit.Country == o.unit.Country {
			continue
		}
		if r.needsConvoy(att) && !r.hasConvoyPath(att) {
			continue
		}
		if att.order.Province == into {
			// A return attack from the province being supported into never
			// cuts the support, win or lose.
			continue
		}
		return false
	}
	return true
}

func (r *resolver) adjudicateConvoy(i int) bool {
	o := &r.orders[i]
	for j := range r.orders {
		att := &r.orders[j]
		if att.order.Kind != Move || att.order.Dest != o.order.Province {
			continue
		}
		if att.unit.Country == o.unit.Country {
			continue
		}
		if r.resolve(j) {
			return false
		}
	}
	return true
}

// attackStrength computes the strength of move i against its destination.
func (r *resolver) attackStrength(i int) int {
	o := &r.orders[i]
	victim := r.s.UnitAt(o.order.Dest)
	if victim == nil {
		return 1 + r.supportCount(i, "")
	}
	j := r.at(o.order.Dest)
	if j >= 0 && r.orders[j].order.Kind == Move && r.headToHead(i) < 0 && r.resolve(j) {
		// The occupier leaves; the square counts as empty.
		return 1 + r.supportCount(i, "")
	}
	if victim.Country == o.unit.Country {
		return 0
	}
	return 1 + r.supportCount(i, victim.Country)
}

// holdStrength computes how hard the unit at prov is to dislodge in place.
func (r *resolver) holdStrength(prov string) int {
	if r.s.UnitAt(prov) == nil {
		return 0
	}
	i := r.at(prov)
	if i >= 0 && r.orders[i].order.Kind == Move {
		if r.resolve(i) {
			return 0
		}
		return 1
	}
	strength := 1
	for j := range r.orders {
		s := &r.orders[j]
		if s.order.Kind == SupportHold && s.order.Supporting == prov && r.resolve(j) {
			strength++
		}
	}
	return strength
}

// defendStrength computes the head-to-head defence of move i.
func (r *resolver) defendStrength(i int) int {
	return 1 + r.supportCount(i, "")
}

// preventStrength computes how strongly move j blocks competitors at its
// destination.
func (r *resolver) preventStrength(j int) int {
	o := &r.orders[j]
	if r.needsConvoy(o) && !r.hasConvoyPath(o) {
		return 0
	}
	if opp := r.headToHead(j); opp >= 0 && r.resolve(opp) {
		return 0
	}
	return 1 + r.supportCount(j, "")
}

// supportCount counts the successful support-move orders for move i. When
// excludeCountry is set, supports owned by that country do not count (a
// country never helps dislodge its own unit).
func (r *resolver) supportCount(i int, excludeCountry string) int {
	o := &r.orders[i]
	count := 0
	for j := range r.orders {
		s := &r.orders[j]
		if s.order.Kind != SupportMove {
			continue
		}
		if s.order.From != o.order.Province || s.order.Supporting != o.order.Dest {
			continue
		}
		if excludeCountry != "" && s.unit.Country == excludeCountry {
			continue
		}
		if r.resolve(j) {
			count++
		}
	}
	return count
}

// needsConvoy reports whether a move travels by convoy: an army flagged via
// convoy, or an army whose destination is not adjacent by land.
func (r *resolver) needsConvoy(o *adjOrder) bool {
	if o.order.Kind != Move || o.unit.Type != Army {
		return false
	}
	if o.order.ViaConvoy {
		return true
	}
	return !r.m.Adjacent(o.order.Province, dipmap.NoCoast, o.order.Dest, dipmap.NoCoast, false)
}

// hasConvoyPath reports whether any chain of successful convoy orders
// carries the move. Reachability over the coast-agnostic relation: if any
// route of working convoys exists, the convoy works.
func (r *resolver) hasConvoyPath(o *adjOrder) bool {
	src, dst := o.order.Province, o.order.Dest

	carrier := func(j int) bool {
		c := &r.orders[j]
		if c.order.Kind != Convoy || c.order.Start != src || c.order.End != dst {
			return false
		}
		p := r.m.Province(c.order.Province)
		return p != nil && p.Kind == dipmap.Sea
	}

	visited := make(map[int]bool)
	var queue []int
	for j := range r.orders {
		if carrier(j) && r.m.AdjacentIgnoreCoasts(src, r.orders[j].order.Province) && r.resolve(j) {
			visited[j] = true
			queue = append(queue, j)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		at := r.orders[cur].order.Province
		if r.m.AdjacentIgnoreCoasts(at, dst) {
			return true
		}
		for j := range r.orders {
			if !visited[j] && carrier(j) && r.m.AdjacentIgnoreCoasts(at, r.orders[j].order.Province) && r.resolve(j) {
				visited[j] = true
				queue = append(queue, j)
			}
		}
	}
	return false
}

// buildOutcome stamps results and collects dislodgements and contested
// provinces.
func (r *resolver) buildOutcome() *MovementOutcome {
	out := &MovementOutcome{
		Dislodgements: make(map[string]*Dislodgement),
		Contested:     make(map[string]bool),
		res:           r,
	}

	for i := range r.orders {
		o := &r.orders[i]
		if o.resolution {
			o.order.Result = Success
		} else {
			o.order.Result = Fail
		}
		if o.order.Kind == Move && o.resolution {
			out.moves = append(out.moves, i)
		}
	}

	// Successful moves dislodge whatever stayed behind at their target.
	for _, i := range out.moves {
		o := &r.orders[i]
		victim := r.s.UnitAt(o.order.Dest)
		if victim == nil {
			continue
		}
		j := r.at(o.order.Dest)
		if j >= 0 && r.orders[j].order.Kind == Move && r.orders[j].resolution {
			continue // moved away
		}
		if j >= 0 {
			r.orders[j].order.Result = Dislodged
		}
		from := o.order.Province
		if r.needsConvoy(o) {
			from = ""
		}
		out.Dislodgements[o.order.Dest] = &Dislodgement{
			Unit:    *victim,
			From:    from,
			Country: victim.Country,
		}
	}

	// Standoff squares: two or more failed attacks whose units were not
	// themselves dislodged leave the destination contested for retreats.
	failedAttacks := make(map[string]int)
	for i := range r.orders {
		o := &r.orders[i]
		if o.order.Kind == Move && o.order.Result == Fail {
			failedAttacks[o.order.Dest]++
		}
	}
	for dest, n := range failedAttacks {
		if n >= 2 {
			out.Contested[dest] = true
		}
	}

	return out
}

// ApplyMoves carries the outcome's successful moves into next, removing
// dislodged units from the board. next must be a clone of the adjudicated
// state's nations table.
func (out *MovementOutcome) ApplyMoves(m *dipmap.Map, next *State) error {
	r := out.res

	for prov, d := range out.Dislodgements {
		if err := next.RemoveUnit(d.Country, prov); err != nil {
			return err
		}
	}

	type moveTo struct {
		dest  string
		coast dipmap.Coast
	}
	pending := make(map[string]moveTo, len(out.moves))
	var origins []string
	for _, i := range out.moves {
		o := &r.orders[i]
		coast := o.order.DestCoast
		if o.unit.Type == Fleet && coast == dipmap.NoCoast && m.HasCoasts(o.order.Dest) {
			coasts := m.FleetCoastsTo(o.order.Province, o.unit.Coast, o.order.Dest)
			if len(coasts) == 1 {
				coast = coasts[0]
			}
		}
		if o.unit.Type == Army || !m.HasCoasts(o.order.Dest) {
			coast = o.order.DestCoast
			if !m.HasCoasts(o.order.Dest) {
				coast = dipmap.NoCoast
			}
		}
		pending[o.order.Province] = moveTo{dest: o.order.Dest, coast: coast}
		origins = append(origins, o.order.Province)
	}
	sort.Strings(origins)

	// All moves land atomically: every mover leaves before anyone arrives.
	for _, n := range next.Nations {
		for i := range n.Units {
			if mv, ok := pending[n.Units[i].Province]; ok {
				n.Units[i].Province = mv.dest
				n.Units[i].Coast = mv.coast
			}
		}
	}

	return next.check(m)
}
