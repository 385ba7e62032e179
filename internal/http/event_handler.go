package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type eventService interface {
	ListEvents(ctx context.Context, principal application.Principal, start, end time.Time) ([]application.Session, error)
	ListPublicEvents(ctx context.Context, start, end time.Time) ([]application.PublicSession, error)
	CreateOneOff(ctx context.Context, params application.CreateOneOffParams) (application.Session, error)
	UpdateInstance(ctx context.Context, params application.UpdateInstanceParams) (application.Session, error)
	CancelInstance(ctx context.Context, params application.CancelInstanceParams) error
	EventICS(ctx context.Context, principal application.Principal, input application.SessionRefInput) (string, error)
}

type coverageService interface {
	Assign(ctx context.Context, params application.AssignParams) (application.Session, error)
	Unassign(ctx context.Context, params application.UnassignParams) (application.Session, error)
}

type coverageReporter interface {
	Unclaimed(ctx context.Context) ([]application.Session, error)
	CoverageStats(ctx context.Context, months int) (application.CoverageStats, error)
}

// EventHandler serves session listing, one-off creation and per-session
// mutations including host assignment.
type EventHandler struct {
	events    eventService
	coverage  coverageService
	reports   coverageReporter
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(events eventService, coverage coverageService, reports coverageReporter, logger *slog.Logger) *EventHandler {
	base := logging.Or(logger)
	return &EventHandler{events: events, coverage: coverage, reports: reports, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	window, ok := h.responder.bindWindow(w, r)
	if !ok {
		return
	}

	logger := h.log(ctx, "List", "principal_id", principal.UserID)
	sessions, err := h.events.ListEvents(ctx, principal, window.Start, window.End)
	if err != nil {
		logger.ErrorContext(ctx, "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("result_count", len(sessions)).InfoContext(ctx, "events listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *EventHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, ok := h.responder.bindWindow(w, r)
	if !ok {
		return
	}

	logger := h.log(ctx, "ListPublic")
	sessions, err := h.events.ListPublicEvents(ctx, window.Start, window.End)
	if err != nil {
		logger.ErrorContext(ctx, "public event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]sessionDTO, 0, len(sessions))
	for _, public := range sessions {
		dto := toSessionDTO(public.Session)
		dto.HostName = public.HostName
		out = append(out, dto)
	}
	logger.With("result_count", len(out)).InfoContext(ctx, "public events listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listSessionsResponse{Sessions: out})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req createOneOffRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Create", "principal_id", principal.UserID)
	session, err := h.events.CreateOneOff(ctx, application.CreateOneOffParams{
		Principal: principal,
		Input: application.OneOffInput{
			Title:  req.Title,
			Notes:  req.Notes,
			Link:   req.Link,
			Color:  req.Color,
			Start:  req.Start,
			End:    req.End,
			HostID: req.HostID,
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "one-off creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("instance_id", session.InstanceID).InfoContext(ctx, "one-off created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *EventHandler) Unclaimed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Unclaimed", "principal_id", principal.UserID)

	sessions, err := h.reports.Unclaimed(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "unclaimed list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("result_count", len(sessions)).InfoContext(ctx, "unclaimed sessions listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *EventHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	months, err := queryInt(r.URL.Query(), "months")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(ctx, "Coverage", "principal_id", principal.UserID, "months", months)
	stats, err := h.reports.CoverageStats(ctx, months)
	if err != nil {
		logger.ErrorContext(ctx, "coverage stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "coverage computed", "total", stats.Total, "covered", stats.Covered)
	h.responder.writeJSON(ctx, w, http.StatusOK, toCoverageDTO(stats))
}

func (h *EventHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req assignRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Assign", "principal_id", principal.UserID, "host_id", req.HostID, "admin_override", req.AdminOverride)
	session, err := h.coverage.Assign(ctx, application.AssignParams{
		Principal:     principal,
		Ref:           req.toInput(),
		HostID:        req.HostID,
		AdminOverride: req.AdminOverride,
	})
	if err != nil {
		logger.ErrorContext(ctx, "assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("instance_id", session.InstanceID).InfoContext(ctx, "host assigned")
	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *EventHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req sessionRefRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Unassign", "principal_id", principal.UserID)
	session, err := h.coverage.Unassign(ctx, application.UnassignParams{Principal: principal, Ref: req.toInput()})
	if err != nil {
		logger.ErrorContext(ctx, "unassignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("instance_id", session.InstanceID).InfoContext(ctx, "host removed")
	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req updateInstanceRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Update", "principal_id", principal.UserID)
	session, err := h.events.UpdateInstance(ctx, application.UpdateInstanceParams{
		Principal: principal,
		Ref:       req.toInput(),
		Start:     req.Start,
		End:       req.End,
		Notes:     req.Notes,
	})
	if err != nil {
		logger.ErrorContext(ctx, "instance update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("instance_id", session.InstanceID).InfoContext(ctx, "instance updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req sessionRefRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Cancel", "principal_id", principal.UserID)
	if err := h.events.CancelInstance(ctx, application.CancelInstanceParams{Principal: principal, Ref: req.toInput()}); err != nil {
		logger.ErrorContext(ctx, "instance cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "instance cancelled")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *EventHandler) ICS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req sessionRefRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "ICS", "principal_id", principal.UserID)
	body, err := h.events.EventICS(ctx, principal, req.toInput())
	if err != nil {
		logger.ErrorContext(ctx, "event export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "event exported")
	h.responder.writeCalendar(ctx, w, "session.ics", body)
}

type createOneOffRequest struct {
	Title  string    `json:"title" validate:"required,max=200"`
	Notes  string    `json:"notes" validate:"max=4000"`
	Link   string    `json:"link" validate:"omitempty,url"`
	Color  string    `json:"color" validate:"max=32"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required,gtfield=Start"`
	HostID *string   `json:"host_id" validate:"omitempty,min=1"`
}

type assignRequest struct {
	sessionRefRequest
	HostID        string `json:"host_id" validate:"required"`
	AdminOverride bool   `json:"admin_override"`
}

type updateInstanceRequest struct {
	sessionRefRequest
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
	Notes *string    `json:"notes" validate:"omitempty,max=4000"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}
