package engine

// Sanitized returns a deep copy of the game with the in-flight submissions
// of other countries stripped. Only the current state carries unresolved
// submissions; resolved history is public. Because orders are tabled per
// country, redaction is a plain map projection.
func (g *Game) Sanitized(viewer string) *Game {
	c := &Game{
		ID:      g.ID,
		Name:    g.Name,
		MapName: g.MapName,
		Users:   append([]string(nil), g.Users...),
		Players: make(map[string]string, len(g.Players)),
		Winner:  g.Winner,
		Won:     g.Won,
		Phase:   g.Phase,
		History: make([]*State, len(g.History)),
		board:   g.board,
	}
	for country, user := range g.Players {
		c.Players[country] = user
	}
	for i, s := range g.History {
		c.History[i] = s.Clone()
	}

	mine := make(map[string]bool)
	for _, country := range g.CountriesOf(viewer) {
		mine[country] = true
	}
	cur := c.Current()
	switch g.Phase {
	case OrderWriting:
		for country := range cur.Orders {
			if !mine[country] {
				delete(cur.Orders, country)
			}
		}
	case Retreating:
		for country := range cur.Retreats {
			if !mine[country] {
				delete(cur.Retreats, country)
			}
		}
	case CreatingDisbanding:
		for country := range cur.Adjustments {
			if !mine[country] {
				delete(cur.Adjustments, country)
			}
		}
	}
	return c
}
