package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Brownie44l1/mineral-api/internal/scores"
)

// Source tells which entry point produced a result.
type Source string

const (
	SourceOneShot    Source = "one-shot"
	SourceContinuous Source = "continuous"
)

// Result is one finished classification. It is not modified after
// delivery.
type Result struct {
	ID         string
	Source     Source
	Label      string
	Confidence float64 // [0,1]
	Percent    string
	Latency    time.Duration
	Ranked     []scores.LabelProbability
	At         time.Time
}

// LatencyMillis returns Latency in milliseconds.
func (r Result) LatencyMillis() float64 {
	return float64(r.Latency) / float64(time.Millisecond)
}

// Text is the multi-line payload shown to the user.
func (r Result) Text() string {
	return fmt.Sprintf("Class: %s\nConfident: %s\nLatency: %.2f ms", r.Label, r.Percent, r.LatencyMillis())
}

type resultJSON struct {
	ID         string                    `json:"id"`
	Source     Source                    `json:"source"`
	Class      string                    `json:"class"`
	Confidence float64                   `json:"confidence"`
	Percent    string                    `json:"percent"`
	LatencyMS  float64                   `json:"latency_ms"`
	Text       string                    `json:"text"`
	Ranked     []scores.LabelProbability `json:"ranked,omitempty"`
	At         time.Time                 `json:"at"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		ID:         r.ID,
		Source:     r.Source,
		Class:      r.Label,
		Confidence: r.Confidence,
		Percent:    r.Percent,
		LatencyMS:  r.LatencyMillis(),
		Text:       r.Text(),
		Ranked:     r.Ranked,
		At:         r.At,
	})
}
