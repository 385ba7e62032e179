package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/logging"
)

type seriesService interface {
	CreateSeries(ctx context.Context, params application.CreateSeriesParams) (application.Series, error)
	UpdateSeries(ctx context.Context, params application.UpdateSeriesParams) (application.Series, error)
	DeleteSeries(ctx context.Context, principal application.Principal, rawID string) error
	GetSeries(ctx context.Context, principal application.Principal, rawID string) (application.Series, error)
	ListSeries(ctx context.Context, principal application.Principal) ([]application.Series, error)
	SeriesICS(ctx context.Context, principal application.Principal, rawID string) (string, error)
}

type SeriesHandler struct {
	service   seriesService
	responder responder
	logger    *slog.Logger
}

func NewSeriesHandler(service seriesService, logger *slog.Logger) *SeriesHandler {
	base := logging.Or(logger)
	return &SeriesHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SeriesHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "SeriesHandler", operation, attrs...)
}

func (h *SeriesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "List", "principal_id", principal.UserID)

	series, err := h.service.ListSeries(ctx, principal)
	if err != nil {
		logger.ErrorContext(ctx, "series list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]seriesDTO, 0, len(series))
	for _, s := range series {
		out = append(out, toSeriesDTO(s))
	}
	logger.With("result_count", len(out)).InfoContext(ctx, "series listed")
	h.responder.writeJSON(ctx, w, http.StatusOK, listSeriesResponse{Series: out})
}

func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req createSeriesRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Create", "principal_id", principal.UserID, "frequency", req.Frequency)
	series, err := h.service.CreateSeries(ctx, application.CreateSeriesParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "series creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("series_id", series.ID).InfoContext(ctx, "series created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, seriesResponse{Series: toSeriesDTO(series)})
}

func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "Get", "principal_id", principal.UserID, "series_id", id)

	series, err := h.service.GetSeries(ctx, principal, id)
	if err != nil {
		logger.ErrorContext(ctx, "series lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, seriesResponse{Series: toSeriesDTO(series)})
}

func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")

	var req updateSeriesRequest
	if !h.responder.bind(w, r, &req) {
		return
	}

	logger := h.log(ctx, "Update", "principal_id", principal.UserID, "series_id", id)
	series, err := h.service.UpdateSeries(ctx, application.UpdateSeriesParams{
		Principal: principal,
		SeriesID:  id,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "series update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "series updated", "paused", series.Paused)
	h.responder.writeJSON(ctx, w, http.StatusOK, seriesResponse{Series: toSeriesDTO(series)})
}

func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "Delete", "principal_id", principal.UserID, "series_id", id)

	if err := h.service.DeleteSeries(ctx, principal, id); err != nil {
		logger.ErrorContext(ctx, "series deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "series deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *SeriesHandler) ICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	id := r.PathValue("id")
	logger := h.log(ctx, "ICS", "principal_id", principal.UserID, "series_id", id)

	body, err := h.service.SeriesICS(ctx, principal, id)
	if err != nil {
		logger.ErrorContext(ctx, "series export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "series exported")
	h.responder.writeCalendar(ctx, w, "series-"+id+".ics", body)
}

type createSeriesRequest struct {
	Title           string     `json:"title" validate:"required,max=200"`
	Notes           string     `json:"notes" validate:"max=4000"`
	Link            string     `json:"link" validate:"omitempty,url"`
	Frequency       string     `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	Weekday         string     `json:"weekday" validate:"required"`
	Ordinal         string     `json:"ordinal" validate:"omitempty,oneof=first second third fourth last"`
	Start           time.Time  `json:"start" validate:"required"`
	End             *time.Time `json:"end"`
	DurationMinutes uint32     `json:"duration_minutes" validate:"max=1440"`
	Color           string     `json:"color" validate:"max=32"`
}

func (r createSeriesRequest) toInput() application.SeriesInput {
	return application.SeriesInput{
		Title:           r.Title,
		Notes:           r.Notes,
		Link:            r.Link,
		Frequency:       r.Frequency,
		Weekday:         r.Weekday,
		Ordinal:         r.Ordinal,
		Start:           r.Start,
		End:             r.End,
		DurationMinutes: r.DurationMinutes,
		Color:           r.Color,
	}
}

type updateSeriesRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Notes           *string    `json:"notes" validate:"omitempty,max=4000"`
	Link            *string    `json:"link" validate:"omitempty,max=2048"`
	End             *time.Time `json:"end" validate:"excluded_with=ClearEnd"`
	ClearEnd        bool       `json:"clear_end"`
	DurationMinutes *uint32    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	Color           *string    `json:"color" validate:"omitempty,max=32,excluded_with=ClearColor"`
	ClearColor      bool       `json:"clear_color"`
	Paused          *bool      `json:"paused"`
}

func (r updateSeriesRequest) toPatch() application.SeriesPatch {
	return application.SeriesPatch{
		Title:           r.Title,
		Notes:           r.Notes,
		Link:            r.Link,
		End:             r.End,
		ClearEnd:        r.ClearEnd,
		DurationMinutes: r.DurationMinutes,
		Color:           r.Color,
		ClearColor:      r.ClearColor,
		Paused:          r.Paused,
	}
}

type seriesResponse struct {
	Series seriesDTO `json:"series"`
}

type listSeriesResponse struct {
	Series []seriesDTO `json:"series"`
}
