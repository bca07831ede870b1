package dipmap

import (
	_ "embed"
	"sync"
)

//go:embed standard.dipmap
var standardDoc []byte

var (
	stdOnce sync.Once
	stdMap  *Map
	stdErr  error
)

// Standard returns the classic 75-province board, parsed once and cached.
// Callers must not mutate the returned map.
func Standard() (*Map, error) {
	stdOnce.Do(func() {
		stdMap, stdErr = Parse(standardDoc, "standard")
	})
	return stdMap, stdErr
}
