// Package progress shows a liveness indicator in the host status bar while a
// run is active. It carries no information about the run itself.
package progress

import (
	"fmt"
	"sync"

	"hosttest/pkg/hosttest/host"

	"github.com/charmbracelet/bubbles/spinner"
)

const statusKey = "hosttest"

// Indicator animates a spinner next to a label on the host status bar. Each
// frame schedules the next one on the host.
type Indicator struct {
	host    host.Host
	label   string
	spinner spinner.Spinner

	mu         sync.Mutex
	running    bool
	generation int
	frame      int
}

func New(h host.Host, label string) *Indicator {
	return &Indicator{
		host:    h,
		label:   label,
		spinner: spinner.MiniDot,
	}
}

// Start shows the indicator. Starting a running indicator does nothing.
func (p *Indicator) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.generation++
	p.frame = 0
	gen := p.generation
	p.mu.Unlock()

	p.tick(gen)
}

// Stop removes the indicator. It is safe to call more than once.
func (p *Indicator) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.generation++
	p.mu.Unlock()

	p.host.EraseStatus(statusKey)
}

func (p *Indicator) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Indicator) tick(gen int) {
	p.mu.Lock()
	// A timer armed before Stop, or before a restart, must not draw.
	if !p.running || gen != p.generation {
		p.mu.Unlock()
		return
	}
	frames := p.spinner.Frames
	text := fmt.Sprintf("%s %s", frames[p.frame%len(frames)], p.label)
	p.frame++
	p.mu.Unlock()

	p.host.SetStatus(statusKey, text)
	p.host.SetTimeout(func() { p.tick(gen) }, p.spinner.FPS)
}
