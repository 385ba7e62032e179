package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type settingsService interface {
	GetSettings(ctx context.Context, principal application.Principal) (application.GlobalSettings, error)
	UpdateSettings(ctx context.Context, principal application.Principal, patch application.SettingsPatch) (application.GlobalSettings, error)
}

type SettingsHandler struct {
	service   settingsService
	responder responder
	logger    *slog.Logger
}

func NewSettingsHandler(service settingsService, logger *slog.Logger) *SettingsHandler {
	base := logging.Or(logger)
	return &SettingsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SettingsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "SettingsHandler", operation, attrs...)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	settings, err := h.service.GetSettings(ctx, principal)
	if err != nil {
		h.log(ctx, "Get", "principal_id", principal.UserID).ErrorContext(ctx, "settings lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, settingsResponse{Settings: toSettingsDTO(settings)})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req updateSettingsRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Update", "principal_id", principal.UserID)
	settings, err := h.service.UpdateSettings(ctx, principal, application.SettingsPatch{
		ForwardWindowMonths:    req.ForwardWindowMonths,
		ClaimsPaused:           req.ClaimsPaused,
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		OrgName:                req.OrgName,
		OrgTimezoneLabel:       req.OrgTimezoneLabel,
	})
	if err != nil {
		logger.ErrorContext(ctx, "settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "settings updated", "claims_paused", settings.ClaimsPaused)
	h.responder.writeJSON(ctx, w, http.StatusOK, settingsResponse{Settings: toSettingsDTO(settings)})
}

type updateSettingsRequest struct {
	ForwardWindowMonths    *int    `json:"forward_window_months" validate:"omitempty,min=1,max=12"`
	ClaimsPaused           *bool   `json:"claims_paused"`
	DefaultDurationMinutes *uint32 `json:"default_duration_minutes" validate:"omitempty,min=1,max=1440"`
	OrgName                *string `json:"org_name" validate:"omitempty,min=1,max=200"`
	OrgTimezoneLabel       *string `json:"org_timezone_label" validate:"omitempty,max=64"`
}

type settingsResponse struct {
	Settings settingsDTO `json:"settings"`
}
