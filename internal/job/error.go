package job

import "errors"

// ErrInvalidInput is returned when a job has neither a prompt nor messages.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputMessage is the caller-facing text for ErrInvalidInput.
const InvalidInputMessage = "Invalid input format. Expected 'prompt' or 'messages' field."
