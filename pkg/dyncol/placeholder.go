package dyncol

import (
	"strconv"
	"sync/atomic"
)

// PlaceholderPrefix starts every generated bind name. It is chosen so it
// cannot collide with ordinary named parameters in the same statement.
const PlaceholderPrefix = ":dyncol"

// Placeholders hands out bind-parameter names from a counter that only
// ever increases. The zero value is ready to use.
type Placeholders struct {
	n atomic.Uint64
}

// DefaultPlaceholders is the process-wide source. It is never reset, so
// names stay unique across every statement built by this process.
var DefaultPlaceholders = &Placeholders{}

// Next returns a fresh placeholder token such as ":dyncol1a"
func (p *Placeholders) Next() string {
	return PlaceholderPrefix + strconv.FormatUint(p.n.Add(1), 36)
}

// Issued reports how many tokens have been handed out
func (p *Placeholders) Issued() uint64 {
	return p.n.Load()
}
