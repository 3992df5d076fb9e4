package types

// BroadcastRequest represents the payload of POST /broadcast.
type BroadcastRequest struct {
	// Prompt to send. @Name mentions narrow the target models.
	// example: @GPT4o explain monads
	Prompt string `json:"prompt" example:"@GPT4o explain monads"`
	// Optional chat session id. Defaults to the active session, or a new one.
	// example: 0b6f6f5e-3a51-4b3e-9d57-6f1f4f1c2a10
	SessionID string `json:"session_id,omitempty" example:"0b6f6f5e-3a51-4b3e-9d57-6f1f4f1c2a10"`
}

// BroadcastResponse describes a started (or, with wait=1, finished) broadcast.
type BroadcastResponse struct {
	// Session hosting the results.
	SessionID string `json:"session_id"`
	// Prompt actually sent after mention stripping.
	// example: explain monads
	Prompt string `json:"prompt" example:"explain monads"`
	// One result id per targeted model, in model order.
	ResultIDs []string `json:"result_ids"`
	// Per-model outcome; only present when the call waited for completion.
	Outcomes []OutcomeStatus `json:"outcomes,omitempty"`
}

// OutcomeStatus is the terminal state of one generation session.
type OutcomeStatus struct {
	ResultID string `json:"result_id"`
	ModelID  string `json:"model_id"`
	// Empty on success.
	Error string `json:"error,omitempty"`
	// One of connect_timeout, read_timeout, provider_error, parse_error, aborted.
	ErrorKind string  `json:"error_kind,omitempty"`
	Metrics   Metrics `json:"metrics"`
}

// RetryRequest optionally names the model of the retried result.
type RetryRequest struct {
	// example: gpt-4o
	ModelID string `json:"model_id,omitempty" example:"gpt-4o"`
}

// RatingRequest represents the payload of POST /results/{id}/rating.
type RatingRequest struct {
	// example: 4
	Rating int `json:"rating" example:"4"`
	// Who produced the rating (e.g. user, judge model id).
	// example: user
	Source string `json:"source,omitempty" example:"user"`
}

// EnqueueRequest represents the payload of POST /queue.
type EnqueueRequest struct {
	// example: compare quicksort and mergesort
	Prompt    string `json:"prompt" example:"compare quicksort and mergesort"`
	SessionID string `json:"session_id,omitempty"`
}

// MoveRequest represents the payload of POST /queue/{id}/move.
type MoveRequest struct {
	// Target position, 0-based. Out of range values are clamped.
	// example: 0
	Index int `json:"index" example:"0"`
}

// CreateSessionRequest represents the payload of POST /sessions.
type CreateSessionRequest struct {
	// example: Sorting algorithms
	Title string `json:"title" example:"Sorting algorithms"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// SessionsResponse wraps GET /sessions.
type SessionsResponse struct {
	Sessions []ChatSession `json:"sessions"`
	// example: 0b6f6f5e-3a51-4b3e-9d57-6f1f4f1c2a10
	ActiveSessionID string `json:"active_session_id,omitempty"`
}

// QueueResponse wraps GET /queue.
type QueueResponse struct {
	Items      []QueueItem `json:"items"`
	Processing bool        `json:"processing"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Result ids with a live generation session.
	LiveSessions []string `json:"live_sessions"`
	// Number of queued prompts, including the one being processed.
	// example: 2
	QueueLen int `json:"queue_len" example:"2"`
	// True while a queued broadcast is in flight.
	Processing bool `json:"processing"`
	// Result ids with buffered, unpublished streaming patches.
	// example: 1
	PendingPatches int `json:"pending_patches" example:"1"`
	// True while UI publication is paused.
	BatcherPaused bool `json:"batcher_paused"`
	// Number of enabled models.
	// example: 3
	ActiveModels int `json:"active_models" example:"3"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
