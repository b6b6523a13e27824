// Package api exposes the gateway over HTTP: chat, streaming chat over
// SSE, the model listing, usage aggregates, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/gateway"
	"github.com/asgardlabs/giru/internal/telemetry"
	"github.com/asgardlabs/giru/internal/usage"
)

// Chatter is the slice of the gateway the HTTP layer needs.
type Chatter interface {
	Chat(ctx context.Context, req gateway.Request) (gateway.Result, error)
	ChatStream(ctx context.Context, req gateway.Request) (<-chan domain.Delta, <-chan error)
	AvailableModels() []gateway.ModelInfo
	LastModel() string
}

type HandlerConfig struct {
	Gateway Chatter
	// Stats is optional; without it the usage endpoint is not registered.
	Stats        usage.StatsProvider
	Checkers     []HealthChecker
	CheckTimeout time.Duration
}

type Handler struct {
	gateway Chatter
	stats   usage.StatsProvider
	mux     *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	checkTimeout := cfg.CheckTimeout
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	h := &Handler{
		gateway: cfg.Gateway,
		stats:   cfg.Stats,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/chat", h.handleChat)
	h.mux.HandleFunc("POST /v1/chat/stream", h.handleChatStream)
	h.mux.HandleFunc("GET /v1/models", h.handleListModels)
	if h.stats != nil {
		h.mux.HandleFunc("GET /v1/usage", h.handleUsage)
	}
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", handleHealthReady(cfg.Checkers, checkTimeout))
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type chatRequest struct {
	Messages    []domain.Message `json:"messages"`
	Model       string           `json:"model,omitempty"`
	Complexity  string           `json:"complexity,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type chatResponse struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
	RequestID string `json:"request_id"`
}

func (r chatRequest) toGateway() gateway.Request {
	return gateway.Request{
		Messages:    r.Messages,
		ModelKey:    r.Model,
		Complexity:  r.Complexity,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	reqID := requestID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	res, err := h.gateway.Chat(ctx, req.toGateway())
	if err != nil {
		var exhausted *domain.ExhaustedError
		switch {
		case errors.As(err, &exhausted):
			slog.Error("every candidate model failed", "request_id", reqID, "error", err)
			writeError(w, http.StatusBadGateway, "no model could answer")
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
		default:
			slog.Error("chat failed", "request_id", reqID, "error", err)
			writeError(w, http.StatusBadGateway, "chat failed")
		}
		return
	}

	latency := time.Since(start).Milliseconds()
	slog.Info("chat completed",
		"request_id", reqID,
		"trace_id", telemetry.GetTraceID(ctx),
		"model", res.ModelKey,
		"latency_ms", latency,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", reqID)
	json.NewEncoder(w).Encode(chatResponse{
		Text:      res.Text,
		Model:     res.ModelKey,
		LatencyMs: latency,
		RequestID: reqID,
	})
}

func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	reqID := requestID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Request-ID", reqID)

	chunks, errs := h.gateway.ChatStream(ctx, req.toGateway())

	for delta := range chunks {
		data, _ := json.Marshal(delta)
		w.Write([]byte("data: " + string(data) + "\n\n"))
		flusher.Flush()
	}

	if err := <-errs; err != nil {
		slog.Error("stream aborted", "request_id", reqID, "error", err)
		event, _ := json.Marshal(map[string]string{"error": "stream aborted"})
		w.Write([]byte("data: " + string(event) + "\n\n"))
		flusher.Flush()
		return
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()

	slog.Info("stream completed",
		"request_id", reqID,
		"trace_id", telemetry.GetTraceID(ctx),
		"model", h.gateway.LastModel(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := h.gateway.AvailableModels()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"models": models,
		"count":  len(models),
	})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	stats, err := h.stats.Stats(r.Context(), days)
	if err != nil {
		slog.Error("usage stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "usage stats unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"days":  days,
		"stats": stats,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
