// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the registration engine.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/eventreg/internal/audit"
	"github.com/Shivanand-hulikatti/eventreg/internal/logging"
	"github.com/Shivanand-hulikatti/eventreg/internal/model"
	"github.com/Shivanand-hulikatti/eventreg/internal/service"
	"github.com/Shivanand-hulikatti/eventreg/internal/tracing"
)

// EventHandler holds all HTTP handlers for the registration API.
//
// The engine assumes a single caller at a time while net/http serves
// requests concurrently, so every engine call goes through mu.
type EventHandler struct {
	mu     sync.Mutex
	engine *service.Engine
	audit  *audit.Log
	tracer trace.Tracer
}

// NewEventHandler constructs an EventHandler. auditLog may be nil, in which
// case GET /api/audit reports an empty log.
func NewEventHandler(engine *service.Engine, auditLog *audit.Log, tracer trace.Tracer) *EventHandler {
	return &EventHandler{engine: engine, audit: auditLog, tracer: tracer}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, model.Response{Success: true, StatusCode: status, Data: data, Message: msg})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	fe, ok := service.AsError(err)
	if !ok {
		logging.FromContext(r.Context()).Error("engine call failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:      "internal error",
			StatusCode: http.StatusInternalServerError,
		})
		return
	}
	writeJSON(w, fe.Status(), model.ErrorResponse{
		Error:      fe.Message,
		ErrorType:  string(fe.Kind),
		StatusCode: fe.Status(),
		Details:    fe.Detail,
		Hint:       Hint(r, fe.Kind),
	})
}

func writeBadBody(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error:      "invalid request body: " + err.Error(),
		ErrorType:  string(service.KindInvalidInput),
		StatusCode: http.StatusBadRequest,
		Hint:       Hint(r, service.KindInvalidInput),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// flexString accepts a JSON string or number. Form values such as capacity
// and ids arrive either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// call runs fn against the engine under the handler lock inside a span named
// after the operation.
func call[T any](h *EventHandler, r *http.Request, op string, fn func(*service.Engine) (T, error), attrs ...attribute.KeyValue) (T, error) {
	_, span := h.tracer.Start(r.Context(), "engine."+op, trace.WithAttributes(attrs...))
	defer span.End()

	h.mu.Lock()
	v, err := fn(h.engine)
	h.mu.Unlock()

	if err != nil {
		if fe, ok := service.AsError(err); ok {
			span.SetAttributes(
				attribute.String(tracing.AttrErrorType, string(fe.Kind)),
				attribute.Int(tracing.AttrStatus, fe.Status()),
			)
		}
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// read wraps engine reads that cannot fail.
func read[T any](fn func(*service.Engine) T) func(*service.Engine) (T, error) {
	return func(e *service.Engine) (T, error) { return fn(e), nil }
}

// ─── Users ────────────────────────────────────────────────────────────────────

// ListUsers handles GET /api/users
func (h *EventHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, _ := call(h, r, "GetUsers", read((*service.Engine).GetUsers))
	if users == nil {
		users = []model.User{}
	}
	writeOK(w, http.StatusOK, users, "")
}

// CreateUser handles POST /api/users
func (h *EventHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	user, err := call(h, r, "CreateUser", func(e *service.Engine) (*model.User, error) {
		return e.CreateUser(req.Name, req.Email)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, user, "User created successfully")
}

// GetUser handles GET /api/users/{id}
// Returns the user together with the events they are registered for.
func (h *EventHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := call(h, r, "GetUserByID", func(e *service.Engine) (*model.UserWithEvents, error) {
		return e.GetUserByID(id)
	}, attribute.String(tracing.AttrUserID, id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, user, "")
}

// ─── Events ───────────────────────────────────────────────────────────────────

type createEventBody struct {
	Title    string     `json:"title"`
	DateTime string     `json:"date_time"`
	Location string     `json:"location"`
	Capacity flexString `json:"capacity"`
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body createEventBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadBody(w, r, err)
		return
	}
	req := model.CreateEventRequest{
		Title:    body.Title,
		DateTime: body.DateTime,
		Location: body.Location,
		Capacity: string(body.Capacity),
	}

	event, err := call(h, r, "CreateEvent", func(e *service.Engine) (*model.Event, error) {
		return e.CreateEvent(req)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, event, "Event created successfully")
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, _ := call(h, r, "GetEvents", read((*service.Engine).GetEvents))
	writeOK(w, http.StatusOK, events, "")
}

// ListUpcomingEvents handles GET /api/events/upcoming
func (h *EventHandler) ListUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, _ := call(h, r, "GetUpcomingEvents", read((*service.Engine).GetUpcomingEvents))
	writeOK(w, http.StatusOK, events, "")
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := call(h, r, "GetEventDetails", func(e *service.Engine) (*model.EventDetails, error) {
		return e.GetEventDetails(id)
	}, attribute.String(tracing.AttrEventID, id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, details, "")
}

// GetEventStats handles GET /api/events/{id}/stats
func (h *EventHandler) GetEventStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stats, err := call(h, r, "GetEventStats", func(e *service.Engine) (*model.EventStats, error) {
		return e.GetEventStats(id)
	}, attribute.String(tracing.AttrEventID, id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, stats, "")
}

// ─── Registrations ────────────────────────────────────────────────────────────

type registerBody struct {
	UserID flexString `json:"user_id"`
}

// Register handles POST /api/events/{id}/registrations
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var body registerBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadBody(w, r, err)
		return
	}
	userID := string(body.UserID)

	res, err := call(h, r, "RegisterForEvent", func(e *service.Engine) (*model.RegistrationResult, error) {
		return e.RegisterForEvent(eventID, userID)
	}, attribute.String(tracing.AttrEventID, eventID), attribute.String(tracing.AttrUserID, userID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, res, res.Message)
}

// Cancel handles DELETE /api/events/{id}/registrations/{userID}
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")

	res, err := call(h, r, "CancelRegistration", func(e *service.Engine) (*model.CancellationResult, error) {
		return e.CancelRegistration(eventID, userID)
	}, attribute.String(tracing.AttrEventID, eventID), attribute.String(tracing.AttrUserID, userID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res, res.Message)
}

// ─── Stats and audit ──────────────────────────────────────────────────────────

// SystemStats handles GET /api/stats
func (h *EventHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, _ := call(h, r, "GetSystemStats", read((*service.Engine).GetSystemStats))
	writeOK(w, http.StatusOK, stats, "")
}

// AuditLog handles GET /api/audit?table=events
func (h *EventHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries := []audit.Entry{}
	if h.audit != nil {
		entries = h.audit.Entries(r.URL.Query().Get("table"))
	}
	writeOK(w, http.StatusOK, entries, "")
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
