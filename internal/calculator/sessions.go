package calculator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler serves the session endpoints.
type Handler struct {
	sessions *session.Manager
}

func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// SyncActiveSessions adds the sessions already in the store to the
// calculator.sessions.active gauge. Call it once at startup, before serving,
// so deletes of sessions kept from an earlier run do not drive it negative.
func (h *Handler) SyncActiveSessions(ctx context.Context) (int, error) {
	n, err := h.sessions.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	sessionsGauge.Add(ctx, int64(n))
	return n, nil
}

// CreateSession handles POST /calculator/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "calculator.session.create", "")
	defer span.End()

	sess, err := h.sessions.Create(ctx)
	if err != nil {
		h.fail(ctx, span, logger, w, "create_session", err)
		return
	}

	sessionsGauge.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session.id", sess.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, newSessionResponse(sess, nil))
}

// GetSession handles GET /calculator/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span, logger := h.start(r, "calculator.session.get", id)
	defer span.End()

	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.fail(ctx, span, logger, w, "get_session", err)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess, nil))
}

// PressKeys handles POST /calculator/sessions/{id}/keys. The whole batch is
// applied, in order, before any other press on the same session.
func (h *Handler) PressKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span, logger := h.start(r, "calculator.session.press", id)
	defer span.End()

	keys, ok := decodeKeys(ctx, w, r, span, logger, "press")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("calculator.keys_count", len(keys)))

	sess, steps, err := h.sessions.Press(ctx, id, keys)
	if err != nil {
		h.fail(ctx, span, logger, w, "press", err)
		return
	}

	h.recordSteps(ctx, span, logger, sess, steps)
	span.SetStatus(codes.Ok, "")

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess, steps))
}

// ClearSession handles POST /calculator/sessions/{id}/clear.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span, logger := h.start(r, "calculator.session.clear", id)
	defer span.End()

	sess, err := h.sessions.Clear(ctx, id)
	if err != nil {
		h.fail(ctx, span, logger, w, "clear", err)
		return
	}

	h.recordSteps(ctx, span, logger, sess, []engine.Step{{Key: engine.ClearKey().String(), Display: sess.State.Display}})
	span.SetStatus(codes.Ok, "")

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess, nil))
}

// DeleteSession handles DELETE /calculator/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span, logger := h.start(r, "calculator.session.delete", id)
	defer span.End()

	if err := h.sessions.Delete(ctx, id); err != nil {
		h.fail(ctx, span, logger, w, "delete_session", err)
		return
	}

	sessionsGauge.Add(ctx, -1)
	span.SetStatus(codes.Ok, "")
	logger.Info("session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	w.WriteHeader(http.StatusNoContent)
}

// SessionKeypad handles GET /calculator/sessions/{id}/keypad, marking the
// session's active operator.
func (h *Handler) SessionKeypad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span, logger := h.start(r, "calculator.session.keypad", id)
	defer span.End()

	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.fail(ctx, span, logger, w, "keypad", err)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, KeypadResponse{Rows: engine.Keypad(sess.State)})
}

func (h *Handler) start(r *http.Request, name, id string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	attrs := []attribute.KeyValue{attribute.String("request.id", requestID)}
	if id != "" {
		attrs = append(attrs, attribute.String("calculator.session.id", id))
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, span, observability.LoggerWithTrace(ctx)
}

// fail maps manager errors onto HTTP statuses.
func (h *Handler) fail(ctx context.Context, span trace.Span, logger *zap.Logger, w http.ResponseWriter, opName string, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		observability.RecordError(ctx, span, logger, errorCounter, opName, session.ErrNotFound.Error(), err, http.StatusNotFound, w)
	case errors.Is(err, engine.ErrUnknownKey),
		errors.Is(err, engine.ErrInvalidDigit),
		errors.Is(err, engine.ErrUnknownOperation):
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
	default:
		observability.RecordError(ctx, span, logger, errorCounter, opName, "internal error", err, http.StatusInternalServerError, w)
	}
}

func (h *Handler) recordSteps(ctx context.Context, span trace.Span, logger *zap.Logger, sess *session.Session, steps []engine.Step) {
	requestID := observability.RequestIDFromContext(ctx)
	for i, step := range steps {
		recordStep(ctx, span, step, -1)

		logger.Info("key pressed",
			zap.String("session_id", sess.ID),
			zap.String("key", step.Key),
			zap.String("display", step.Display),
			zap.String("request_id", requestID),
		)
		if step.Fallback != "" {
			recordFallback(ctx, span, logger, step.Fallback, zap.String("session_id", sess.ID), zap.Int("step", i))
		}
	}
	recordDisplay(ctx, sess.State.Display)
}
