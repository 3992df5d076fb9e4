package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benchd/pkg/types"
)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}

	// The websocket route stays outside the compressor, which would wrap
	// the hijacked connection.
	r.Get("/ws", h.events)

	r.Group(func(r chi.Router) {
		// Compression for JSON endpoints
		r.Use(middleware.Compress(5))

		r.Get("/models", h.listModels)
		r.Post("/models/{id}/enable", h.enableModel(true))
		r.Post("/models/{id}/disable", h.enableModel(false))
		r.Get("/config", h.getConfig)
		r.Put("/config", h.putConfig)
		r.Get("/status", h.status)

		r.Get("/sessions", h.listSessions)
		r.Post("/sessions", h.createSession)
		r.Get("/sessions/{id}", h.getSession)
		r.Post("/sessions/{id}/activate", h.activateSession)
		r.Post("/sessions/{sid}/results/{rid}/retry", h.retry)

		r.Post("/broadcast", h.broadcast)
		r.Post("/results/{rid}/rating", h.rate)
		r.Post("/abort", h.abort)

		r.Get("/queue", h.queue)
		r.Post("/queue", h.enqueue)
		r.Post("/queue/{id}/pause", h.pauseQueueItem(true))
		r.Post("/queue/{id}/resume", h.pauseQueueItem(false))
		r.Post("/queue/{id}/toggle", h.toggleQueueItem)
		r.Post("/queue/{id}/move", h.moveQueueItem)
		r.Delete("/queue/{id}", h.removeQueueItem)

		r.Post("/batcher/pause", h.batcher(svc.PauseUpdates))
		r.Post("/batcher/resume", h.batcher(svc.ResumeUpdates))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no active models"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the JSON content type and body limit. An empty body is
// accepted when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		// Oversized bodies are reported as invalid too, without size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func wantsWait(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("wait")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// listModels godoc
// @Summary      List models
// @Description  Returns every configured model, enabled or not.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.Models()})
}

func (h *handlers) enableModel(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.SetModelEnabled(chi.URLParam(r, "id"), enabled); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// getConfig godoc
// @Summary      Global generation config
// @Tags         config
// @Produce      json
// @Success      200  {object}  types.GenerationConfig
// @Router       /config [get]
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Config())
}

// putConfig godoc
// @Summary      Replace the global generation config
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        request  body      types.GenerationConfig  true  "Generation config"
// @Success      200      {object}  types.GenerationConfig
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Router       /config [put]
func (h *handlers) putConfig(w http.ResponseWriter, r *http.Request) {
	var c types.GenerationConfig
	if !decodeJSON(w, r, &c, false) {
		return
	}
	h.svc.SetConfig(c)
	writeJSON(w, http.StatusOK, h.svc.Config())
}

// status godoc
// @Summary      Engine status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// listSessions godoc
// @Summary      List chat sessions
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  types.SessionsResponse
// @Router       /sessions [get]
func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions())
}

// createSession godoc
// @Summary      Create a chat session
// @Description  The new session becomes the active one.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateSessionRequest  false  "Title"
// @Success      201      {object}  types.ChatSession
// @Router       /sessions [post]
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.CreateSession(req.Title))
}

// getSession godoc
// @Summary      Get a chat session with its results
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  types.ChatSession
// @Failure      404  {object}  types.ErrorResponse
// @Router       /sessions/{id} [get]
func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handlers) activateSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ActivateSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// broadcast godoc
// @Summary      Broadcast a prompt
// @Description  Sends the prompt to every active model, or to the @mentioned ones.
// @Description  Returns 202 with the result ids at once; with wait=1 the call blocks
// @Description  until every model finished and includes per-model outcomes.
// @Tags         broadcast
// @Accept       json
// @Produce      json
// @Param        wait     query     bool                    false  "Block until all outcomes are known"
// @Param        request  body      types.BroadcastRequest  true   "Prompt"
// @Success      200      {object}  types.BroadcastResponse
// @Success      202      {object}  types.BroadcastResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Router       /broadcast [post]
func (h *handlers) broadcast(w http.ResponseWriter, r *http.Request) {
	var req types.BroadcastRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if wantsWait(r) {
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := waitContext(r)
		defer cancel()
		resp, err := h.svc.Broadcast(ctx, req.Prompt, req.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp, err := h.svc.StartBroadcast(serverBaseCtx, req.Prompt, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// retry godoc
// @Summary      Regenerate one result in place
// @Description  The result keeps its id; only earlier turns of the session are sent as history.
// @Tags         broadcast
// @Accept       json
// @Produce      json
// @Param        sid      path      string              true   "Session id"
// @Param        rid      path      string              true   "Result id"
// @Param        wait     query     bool                false  "Block until the outcome is known"
// @Param        request  body      types.RetryRequest  false  "Model of the result"
// @Success      200      {object}  types.OutcomeStatus
// @Success      202      {object}  types.OutcomeStatus
// @Failure      404      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Router       /sessions/{sid}/results/{rid}/retry [post]
func (h *handlers) retry(w http.ResponseWriter, r *http.Request) {
	var req types.RetryRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	sid, rid := chi.URLParam(r, "sid"), chi.URLParam(r, "rid")
	if wantsWait(r) {
		ctx, cancel := waitContext(r)
		defer cancel()
		out, err := h.svc.Retry(ctx, sid, req.ModelID, rid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	if err := h.svc.StartRetry(serverBaseCtx, sid, req.ModelID, rid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.OutcomeStatus{ResultID: rid, ModelID: req.ModelID})
}

// rate godoc
// @Summary      Rate a result
// @Tags         results
// @Accept       json
// @Param        rid      path  string               true  "Result id"
// @Param        request  body  types.RatingRequest  true  "Rating 0..5"
// @Success      204
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /results/{rid}/rating [post]
func (h *handlers) rate(w http.ResponseWriter, r *http.Request) {
	var req types.RatingRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Source == "" {
		req.Source = "user"
	}
	if err := h.svc.RateResult(chi.URLParam(r, "rid"), req.Rating, req.Source); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// abort godoc
// @Summary      Abort everything
// @Description  Clears the queue and aborts every live generation.
// @Tags         broadcast
// @Produce      json
// @Success      200  {object}  map[string]int
// @Router       /abort [post]
func (h *handlers) abort(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"aborted": h.svc.AbortAll()})
}

// queue godoc
// @Summary      List queued prompts
// @Tags         queue
// @Produce      json
// @Success      200  {object}  types.QueueResponse
// @Router       /queue [get]
func (h *handlers) queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Queue())
}

// enqueue godoc
// @Summary      Queue a prompt
// @Tags         queue
// @Accept       json
// @Produce      json
// @Param        request  body      types.EnqueueRequest  true  "Prompt"
// @Success      201      {object}  types.QueueItem
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Router       /queue [post]
func (h *handlers) enqueue(w http.ResponseWriter, r *http.Request) {
	var req types.EnqueueRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	item, err := h.svc.Enqueue(req.Prompt, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handlers) pauseQueueItem(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := h.svc.SetQueuePaused(chi.URLParam(r, "id"), paused)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *handlers) toggleQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.ToggleQueueItem(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handlers) moveQueueItem(w http.ResponseWriter, r *http.Request) {
	var req types.MoveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.svc.MoveQueueItem(chi.URLParam(r, "id"), req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Queue())
}

func (h *handlers) removeQueueItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveQueueItem(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) batcher(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		w.WriteHeader(http.StatusNoContent)
	}
}
