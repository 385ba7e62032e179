package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type userService interface {
	CurrentUser(ctx context.Context, principal application.Principal) (application.User, error)
	AuthorizeUser(ctx context.Context, params application.AuthorizeUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DisableUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
	EnableUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
	SetOutOfOffice(ctx context.Context, principal application.Principal, blocks []application.OutOfOfficeInput) (application.User, error)
	UpdateNotificationSettings(ctx context.Context, principal application.Principal, settings application.NotificationSettings) (application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := logging.Or(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "UserHandler", operation, attrs...)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	user, err := h.service.CurrentUser(ctx, principal)
	if err != nil {
		h.log(ctx, "Me", "principal_id", principal.UserID).ErrorContext(ctx, "current user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) SetOutOfOffice(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req outOfOfficeRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "SetOutOfOffice", "principal_id", principal.UserID, "blocks", len(req.Blocks))
	blocks := make([]application.OutOfOfficeInput, 0, len(req.Blocks))
	for _, block := range req.Blocks {
		blocks = append(blocks, application.OutOfOfficeInput{Start: block.Start, End: block.End})
	}

	user, err := h.service.SetOutOfOffice(ctx, principal, blocks)
	if err != nil {
		logger.ErrorContext(ctx, "out-of-office update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "out-of-office updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req notificationSettingsDTO
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "UpdateNotificationSettings", "principal_id", principal.UserID)
	user, err := h.service.UpdateNotificationSettings(ctx, principal, req.toSettings())
	if err != nil {
		logger.ErrorContext(ctx, "notification settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "notification settings updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "List", "principal_id", principal.UserID)

	users, err := h.service.ListUsers(ctx, principal)
	if err != nil {
		logger.ErrorContext(ctx, "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	logger.With("result_count", len(out)).InfoContext(ctx, "users listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listUsersResponse{Users: out})
}

func (h *UserHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req authorizeUserRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Authorize", "principal_id", principal.UserID, "user_id", req.ID)
	user, err := h.service.AuthorizeUser(ctx, application.AuthorizeUserParams{
		Principal: principal,
		Input: application.UserInput{
			ID:    req.ID,
			Name:  req.Name,
			Email: req.Email,
			Role:  application.Role(req.Role),
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "user authorization failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user authorized", "role", user.Role)
	h.responder.writeJSON(ctx, w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	userID := r.PathValue("id")

	var req updateUserRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	params := application.UpdateUserParams{
		Principal: principal,
		UserID:    userID,
		Name:      req.Name,
		Email:     req.Email,
	}
	if req.Role != nil {
		role := application.Role(*req.Role)
		params.Role = &role
	}

	logger := h.log(ctx, "Update", "principal_id", principal.UserID, "user_id", userID)
	user, err := h.service.UpdateUser(ctx, params)
	if err != nil {
		logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "Disable", h.service.DisableUser)
}

func (h *UserHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "Enable", h.service.EnableUser)
}

func (h *UserHandler) setStatus(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, application.Principal, string) (application.User, error)) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	userID := r.PathValue("id")
	logger := h.log(ctx, operation, "principal_id", principal.UserID, "user_id", userID)

	user, err := apply(ctx, principal, userID)
	if err != nil {
		logger.ErrorContext(ctx, "user status change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "user status changed", "status", user.Status)
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

type outOfOfficeRequest struct {
	Blocks []outOfOfficeDTO `json:"blocks" validate:"dive"`
}

type authorizeUserRequest struct {
	ID    string `json:"id" validate:"required,max=128"`
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin user"`
}

type updateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=admin user"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}
