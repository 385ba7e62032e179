package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type notificationService interface {
	ListPending(ctx context.Context, principal application.Principal, limit int) ([]application.NotificationJob, error)
	MarkSent(ctx context.Context, principal application.Principal, id string) (application.NotificationJob, error)
	MarkFailed(ctx context.Context, principal application.Principal, id, message string) (application.NotificationJob, error)
}

// NotificationHandler exposes the outbox to an external mail worker.
type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := logging.Or(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "NotificationHandler", operation, attrs...)
}

func (h *NotificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(ctx, "Pending", "principal_id", principal.UserID, "limit", limit)
	jobs, err := h.service.ListPending(ctx, principal, limit)
	if err != nil {
		logger.ErrorContext(ctx, "pending notifications lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]notificationDTO, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toNotificationDTO(job))
	}
	logger.With("result_count", len(out)).InfoContext(ctx, "pending notifications listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listNotificationsResponse{Notifications: out})
}

func (h *NotificationHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "MarkSent", "principal_id", principal.UserID, "notification_id", id)

	job, err := h.service.MarkSent(ctx, principal, id)
	if err != nil {
		logger.ErrorContext(ctx, "mark sent failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "notification marked sent")
	h.responder.writeJSON(ctx, w, http.StatusOK, notificationResponse{Notification: toNotificationDTO(job)})
}

func (h *NotificationHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")

	var req markFailedRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "MarkFailed", "principal_id", principal.UserID, "notification_id", id)
	job, err := h.service.MarkFailed(ctx, principal, id, req.Error)
	if err != nil {
		logger.ErrorContext(ctx, "failure report rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "notification marked failed", "attempts", job.Attempts, "status", job.Status)
	h.responder.writeJSON(ctx, w, http.StatusOK, notificationResponse{Notification: toNotificationDTO(job)})
}

type markFailedRequest struct {
	Error string `json:"error" validate:"required,max=2000"`
}

type notificationResponse struct {
	Notification notificationDTO `json:"notification"`
}

type listNotificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}
