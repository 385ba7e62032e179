package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type tokenService interface {
	IssueToken(ctx context.Context, params application.IssueTokenParams) (application.IssuedToken, error)
	RevokeToken(ctx context.Context, principal application.Principal, rawID string) error
	ListTokens(ctx context.Context, principal application.Principal, userID string) ([]application.AccessToken, error)
}

// TokenHandler manages personal access tokens. The bearer secret is only
// returned by Issue.
type TokenHandler struct {
	service   tokenService
	responder responder
	logger    *slog.Logger
}

func NewTokenHandler(service tokenService, logger *slog.Logger) *TokenHandler {
	base := logging.Or(logger)
	return &TokenHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TokenHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "TokenHandler", operation, attrs...)
}

func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	userID := r.PathValue("id")

	var req issueTokenRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Issue", "principal_id", principal.UserID, "user_id", userID)
	issued, err := h.service.IssueToken(ctx, application.IssueTokenParams{
		Principal: principal,
		UserID:    userID,
		Label:     req.Label,
	})
	if err != nil {
		logger.ErrorContext(ctx, "token issue failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("token_id", issued.Token.ID).InfoContext(ctx, "token issued")
	h.responder.writeJSON(ctx, w, http.StatusCreated, issueTokenResponse{
		Token:  toTokenDTO(issued.Token),
		Bearer: issued.Bearer,
	})
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	userID := r.PathValue("id")
	logger := h.log(ctx, "List", "principal_id", principal.UserID, "user_id", userID)

	tokens, err := h.service.ListTokens(ctx, principal, userID)
	if err != nil {
		logger.ErrorContext(ctx, "token list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]tokenDTO, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, toTokenDTO(token))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, listTokensResponse{Tokens: out})
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	tokenID := r.PathValue("id")
	logger := h.log(ctx, "Revoke", "principal_id", principal.UserID, "token_id", tokenID)

	if err := h.service.RevokeToken(ctx, principal, tokenID); err != nil {
		logger.ErrorContext(ctx, "token revoke failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "token revoked")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

type issueTokenRequest struct {
	Label string `json:"label" validate:"max=100"`
}

type issueTokenResponse struct {
	Token  tokenDTO `json:"token"`
	Bearer string   `json:"bearer"`
}

type listTokensResponse struct {
	Tokens []tokenDTO `json:"tokens"`
}
