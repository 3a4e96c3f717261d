package job

import (
	"encoding/json"
)

// Job is one unit of work delivered by the hosting runtime.
type Job struct {
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// Result is either the backend's raw JSON response or an error message.
type Result struct {
	Output json.RawMessage
	Error  string
}

// Output wraps a raw backend response.
func Output(raw json.RawMessage) Result {
	return Result{Output: raw}
}

// Fail builds an error result.
func Fail(msg string) Result {
	return Result{Error: msg}
}

// Failed reports whether r carries an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// MarshalJSON renders the backend body verbatim, or {"error": msg}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Error})
	}
	if len(r.Output) == 0 {
		return []byte("null"), nil
	}
	return r.Output, nil
}
