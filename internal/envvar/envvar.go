package envvar

const (
	// InferworkerEnv is the environment variable used to determine the environment
	InferworkerEnv = "INFERWORKER_ENV"

	// InferworkerLogLevel is the environment variable used to set the log level
	InferworkerLogLevel = "INFERWORKER_LOG_LEVEL"

	// InferworkerBackend selects the backend profile ("ollama" or "vllm")
	InferworkerBackend = "INFERWORKER_BACKEND"

	// InferworkerConfig points to an optional YAML profile override
	InferworkerConfig = "INFERWORKER_CONFIG"

	// ModelName overrides the default model served by the backend
	ModelName = "MODEL_NAME"

	// OllamaModel overrides the default model for the Ollama profile
	OllamaModel = "OLLAMA_MODEL"

	// RunpodPodID identifies this worker to the job queue
	RunpodPodID = "RUNPOD_POD_ID"

	// RunpodAPIKey authenticates job queue requests
	RunpodAPIKey = "RUNPOD_AI_API_KEY"

	// RunpodWebhookGetJob is the URL template used to take the next job
	RunpodWebhookGetJob = "RUNPOD_WEBHOOK_GET_JOB"

	// RunpodWebhookPostOutput is the URL template used to post a job result
	RunpodWebhookPostOutput = "RUNPOD_WEBHOOK_POST_OUTPUT"

	// RunpodWebhookPing is the URL template used for worker heartbeats
	RunpodWebhookPing = "RUNPOD_WEBHOOK_PING"
)
