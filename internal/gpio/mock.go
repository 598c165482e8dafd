package gpio

import "sync"

// MemoryPin records every level written to it. It stands in for a sysfs
// line in tests.
type MemoryPin struct {
	mu     sync.Mutex
	levels []int
}

func NewMemoryPin() *MemoryPin {
	return &MemoryPin{}
}

func (p *MemoryPin) Write(level int) error {
	if level != Low && level != High {
		return ErrBadLevel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, level)
	return nil
}

// Level returns the most recent write. ok is false before any write.
func (p *MemoryPin) Level() (level int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.levels) == 0 {
		return 0, false
	}
	return p.levels[len(p.levels)-1], true
}

// Writes returns a copy of every level written, oldest first.
func (p *MemoryPin) Writes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.levels))
	copy(out, p.levels)
	return out
}
