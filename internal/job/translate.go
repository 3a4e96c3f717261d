package job

import (
	"strings"

	"github.com/ekisa-team/inferworker/internal/backend"
)

// Shape is the request style of a job.
type Shape string

const (
	ShapeCompletion Shape = "completion"
	ShapeChat       Shape = "chat"
)

// Defaults fill in values the job leaves out.
type Defaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Call is a translated backend request.
type Call struct {
	Shape    Shape
	Endpoint string
	Payload  any
}

type completionPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type chatPayload struct {
	Model       string   `json:"model"`
	Messages    []any    `json:"messages"`
	Stream      bool     `json:"stream"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Translator turns job input into backend requests.
type Translator struct {
	backend backend.Backend
	baseURL string
}

// NewTranslator creates a translator for b reachable at baseURL.
func NewTranslator(b backend.Backend, baseURL string) *Translator {
	return &Translator{
		backend: b,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Translate resolves the shape, payload and endpoint for in. A prompt wins over
// messages; neither yields ErrInvalidInput.
func (t *Translator) Translate(in Input, d Defaults) (*Call, error) {
	model := in.Model
	if model == "" {
		model = d.Model
	}

	switch {
	case in.Prompt != "":
		return &Call{
			Shape:    ShapeCompletion,
			Endpoint: t.baseURL + t.backend.CompletionPath(),
			Payload: completionPayload{
				Model:  model,
				Prompt: in.Prompt,
				Stream: in.Stream,
			},
		}, nil

	case len(in.Messages) > 0:
		payload := chatPayload{
			Model:    model,
			Messages: in.Messages,
			Stream:   in.Stream,
		}

		if t.backend.SupportsSampling() {
			maxTokens, temperature := d.MaxTokens, d.Temperature
			if in.MaxTokens != nil {
				maxTokens = *in.MaxTokens
			}
			if in.Temperature != nil {
				temperature = *in.Temperature
			}
			payload.MaxTokens = &maxTokens
			payload.Temperature = &temperature
		}

		return &Call{
			Shape:    ShapeChat,
			Endpoint: t.baseURL + t.backend.ChatPath(),
			Payload:  payload,
		}, nil

	default:
		return nil, ErrInvalidInput
	}
}
