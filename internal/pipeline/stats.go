package pipeline

import "sync/atomic"

type counters struct {
	classified atomic.Uint64
	delivered  atomic.Uint64
	skipped    atomic.Uint64
	failed     atomic.Uint64
}

// Stats is a snapshot of cycle counters since the pipeline was built.
type Stats struct {
	Mode       Mode   `json:"mode"`
	Halted     bool   `json:"halted"`
	Classified uint64 `json:"classified"`
	Delivered  uint64 `json:"delivered"`
	Skipped    uint64 `json:"skipped"`
	Failed     uint64 `json:"failed"`
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Mode:       p.Mode(),
		Halted:     p.Halted(),
		Classified: p.stats.classified.Load(),
		Delivered:  p.stats.delivered.Load(),
		Skipped:    p.stats.skipped.Load(),
		Failed:     p.stats.failed.Load(),
	}
}
