// Package bench is the benchmark orchestration engine. It turns one prompt
// into concurrent, isolated generation sessions (one per target model),
// streams their progress through the update batcher into the result store,
// and serializes broadcasts through a single-flight, pausable queue.
//
// Files by concern:
//
//   - engine.go: Engine type, constructor, live-session registry, Close.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - errors.go: session error kinds and request errors (IsConnectTimeout, IsBusy, ...).
//   - session.go: the streaming session protocol (timers, accumulation, metrics).
//   - session_image.go: the blocking image-generation variant.
//   - tokens.go: token estimation heuristic.
//   - mentions.go: @mention target resolution and prompt cleaning.
//   - history.go: per-model conversation reconstruction.
//   - dispatch.go: Prepare/Execute/Broadcast fan-out and join.
//   - retry.go: in-place retry of one result.
//   - queue.go: Queue and the engine's queue operations.
//   - abort.go: AbortAll.
//   - status_report.go: Status snapshot for /status.
//   - metrics.go: Prometheus collectors.
//
// A session never fails its caller: every session ends in exactly one Outcome,
// successful or not, and the error is recorded on the result.
package bench
