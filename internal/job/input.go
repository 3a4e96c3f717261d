package job

import (
	"github.com/ekisa-team/inferworker/internal/mapsafe"
)

// Input is the decoded job input.
type Input struct {
	Prompt      string
	Messages    []any
	Model       string
	Stream      bool
	MaxTokens   *int
	Temperature *float64
}

// ParseInput decodes the input mapping. Unknown keys are ignored and values of
// the wrong type are treated as absent.
func ParseInput(m map[string]any) Input {
	in := Input{
		Prompt:   mapsafe.Get(m, "prompt", ""),
		Messages: mapsafe.Get[[]any](m, "messages", nil),
		Model:    mapsafe.Get(m, "model", ""),
		Stream:   mapsafe.Get(m, "stream", false),
	}

	if v, ok := mapsafe.Lookup[int](m, "max_tokens"); ok {
		in.MaxTokens = &v
	}
	if v, ok := mapsafe.Lookup[float64](m, "temperature"); ok {
		in.Temperature = &v
	}

	return in
}
