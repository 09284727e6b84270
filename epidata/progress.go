package epidata

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Percentage prints download progress as an in-place percentage line.
// It is the default progress sink for progress-tracked loads.
type Percentage struct {
	message string
	out     io.Writer
	mu      sync.Mutex
	last    int
}

// NewPercentage creates a percentage indicator writing to stdout.
func NewPercentage(message string) *Percentage {
	return &Percentage{message: message, out: os.Stdout, last: -1}
}

// Set updates the indicator with a fraction in [0,1]. Repeated calls
// with the same whole percentage are suppressed.
func (p *Percentage) Set(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	pct := int(fraction * 100)

	p.mu.Lock()
	defer p.mu.Unlock()
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.out, "\r%s %3d%%", p.message, pct)
	if pct == 100 {
		fmt.Fprintln(p.out)
	}
}
