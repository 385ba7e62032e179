package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/ics"
	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/recurrence"
)

// SeriesInput captures caller provided series fields.
type SeriesInput struct {
	Title           string
	Notes           string
	Link            string
	Frequency       string
	Weekday         string
	Ordinal         string
	Start           time.Time
	End             *time.Time
	DurationMinutes uint32
	Color           string
}

// CreateSeriesParams wraps the data required to create a series.
type CreateSeriesParams struct {
	Principal Principal
	Input     SeriesInput
}

// SeriesPatch lists the mutable fields of a series. Nil leaves a field
// unchanged; ClearEnd and ClearColor remove the optional values.
type SeriesPatch struct {
	Title           *string
	Notes           *string
	Link            *string
	End             *time.Time
	ClearEnd        bool
	DurationMinutes *uint32
	Color           *string
	ClearColor      bool
	Paused          *bool
}

// UpdateSeriesParams wraps the data required to update a series.
type UpdateSeriesParams struct {
	Principal Principal
	SeriesID  string
	Patch     SeriesPatch
}

// SeriesService manages recurring series. Mutations are admin only.
type SeriesService struct {
	series      SeriesRepository
	settings    SettingsRepository
	idGenerator func() uuid.UUID
	now         func() time.Time
	logger      *slog.Logger
}

// NewSeriesService constructs a series service with the provided dependencies.
func NewSeriesService(series SeriesRepository, settings SettingsRepository, idGenerator func() uuid.UUID, now func() time.Time) *SeriesService {
	return NewSeriesServiceWithLogger(series, settings, idGenerator, now, nil)
}

// NewSeriesServiceWithLogger constructs a series service with a specified logger.
func NewSeriesServiceWithLogger(series SeriesRepository, settings SettingsRepository, idGenerator func() uuid.UUID, now func() time.Time, logger *slog.Logger) *SeriesService {
	if idGenerator == nil {
		idGenerator = uuid.New
	}
	if now == nil {
		now = time.Now
	}
	return &SeriesService{series: series, settings: settings, idGenerator: idGenerator, now: now, logger: logging.Or(logger)}
}

func (s *SeriesService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "SeriesService", operation, attrs...)
}

// CreateSeries validates input and stores a new series.
func (s *SeriesService) CreateSeries(ctx context.Context, params CreateSeriesParams) (series Series, err error) {
	if s == nil {
		err = fmt.Errorf("SeriesService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSeries",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("series_id", series.ID).InfoContext(ctx, "series created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.series == nil {
		err = fmt.Errorf("series repository not configured")
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}

	frequency, ferr := recurrence.ParseFrequency(input.Frequency)
	if ferr != nil {
		vErr.add("frequency", "frequency must be weekly, biweekly or monthly")
	}
	weekday, werr := recurrence.ParseWeekday(input.Weekday)
	if werr != nil {
		vErr.add("weekday", "weekday must name a day of the week")
	}
	ordinal, oerr := recurrence.ParseOrdinal(input.Ordinal)
	if oerr != nil {
		vErr.add("ordinal", "ordinal must be first, second, third, fourth or last")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	duration := input.DurationMinutes
	if duration == 0 {
		var settings GlobalSettings
		if settings, err = loadSettings(ctx, s.settings); err != nil {
			err = mapRepoError(err)
			return
		}
		duration = settings.DefaultDurationMinutes
	}

	series = Series{
		ID:              s.idGenerator(),
		Title:           strings.TrimSpace(input.Title),
		Notes:           strings.TrimSpace(input.Notes),
		Link:            strings.TrimSpace(input.Link),
		Frequency:       frequency,
		Weekday:         weekday,
		Ordinal:         ordinal,
		Start:           recurrence.FromTime(input.Start),
		DurationMinutes: duration,
		Color:           strings.TrimSpace(input.Color),
		CreatedAt:       s.now(),
		CreatedBy:       params.Principal.UserID,
	}
	if input.End != nil {
		end := recurrence.FromTime(*input.End)
		series.End = &end
	}

	if rerr := series.Rule().Validate(); rerr != nil {
		err = ruleValidationError(rerr)
		return
	}

	if err = s.series.PutSeries(ctx, series); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateSeries applies patch to an existing series. Base occurrence instants
// depend only on the rule, so exceptions stay attached.
func (s *SeriesService) UpdateSeries(ctx context.Context, params UpdateSeriesParams) (series Series, err error) {
	if s == nil {
		err = fmt.Errorf("SeriesService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSeries",
		"principal_id", params.Principal.UserID,
		"series_id", params.SeriesID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if series, err = s.load(ctx, params.SeriesID); err != nil {
		return
	}

	patch := params.Patch
	vErr := &ValidationError{}
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title == "" {
			vErr.add("title", "title cannot be empty")
		} else {
			series.Title = title
		}
	}
	if patch.Notes != nil {
		series.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.Link != nil {
		series.Link = strings.TrimSpace(*patch.Link)
	}
	switch {
	case patch.ClearEnd:
		series.End = nil
	case patch.End != nil:
		end := recurrence.FromTime(*patch.End)
		series.End = &end
	}
	if patch.DurationMinutes != nil {
		if *patch.DurationMinutes == 0 {
			vErr.add("duration_minutes", "duration must be positive")
		} else {
			series.DurationMinutes = *patch.DurationMinutes
		}
	}
	switch {
	case patch.ClearColor:
		series.Color = ""
	case patch.Color != nil:
		series.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.Paused != nil {
		series.Paused = *patch.Paused
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if rerr := series.Rule().Validate(); rerr != nil {
		err = ruleValidationError(rerr)
		return
	}

	if err = s.series.PutSeries(ctx, series); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteSeries removes a series. Its exceptions become unreachable.
func (s *SeriesService) DeleteSeries(ctx context.Context, principal Principal, rawID string) (err error) {
	if s == nil {
		return fmt.Errorf("SeriesService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSeries",
		"principal_id", principal.UserID,
		"series_id", rawID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	series, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	return mapRepoError(s.series.DeleteSeries(ctx, series.ID))
}

// GetSeries returns one series to an authorized user.
func (s *SeriesService) GetSeries(ctx context.Context, principal Principal, rawID string) (Series, error) {
	if s == nil {
		return Series{}, fmt.Errorf("SeriesService is nil")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return Series{}, ErrUnauthorized
	}
	return s.load(ctx, rawID)
}

// ListSeries returns every series ordered by start then title.
func (s *SeriesService) ListSeries(ctx context.Context, principal Principal) ([]Series, error) {
	if s == nil {
		return nil, fmt.Errorf("SeriesService is nil")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, ErrUnauthorized
	}
	if s.series == nil {
		return nil, nil
	}
	all, err := s.series.ListSeries(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].Title < all[j].Title
	})
	return all, nil
}

// SeriesICS renders the series as a calendar feed with one recurring event.
func (s *SeriesService) SeriesICS(ctx context.Context, principal Principal, rawID string) (string, error) {
	series, err := s.GetSeries(ctx, principal, rawID)
	if err != nil {
		return "", err
	}
	rule, err := series.Rule().RRuleString()
	if err != nil {
		return "", err
	}

	// DTSTART must be an occurrence; a rule may start before its first one.
	first := series.Start
	if occurrences := recurrence.Generate(series.Rule(), series.Start, series.Start+62*recurrence.Day); len(occurrences) > 0 {
		first = occurrences[0]
	}
	return ics.Calendar(ics.MethodPublish, s.now(), ics.Event{
		ID:          series.ID,
		Start:       first.Time(),
		End:         (first + series.Duration()).Time(),
		Summary:     series.Title,
		Description: series.Notes,
		URL:         series.Link,
		RRule:       rule,
	}), nil
}

func (s *SeriesService) load(ctx context.Context, rawID string) (Series, error) {
	id, err := parseID(rawID)
	if err != nil {
		return Series{}, newValidationError("series_id", "must be a 16 byte identifier")
	}
	if s.series == nil {
		return Series{}, ErrNotFound
	}
	series, err := s.series.GetSeries(ctx, id)
	if err != nil {
		return Series{}, mapRepoError(err)
	}
	return series, nil
}

func ruleValidationError(err error) *ValidationError {
	switch {
	case errors.Is(err, recurrence.ErrOrdinalRequired):
		return newValidationError("ordinal", "ordinal is required for monthly series")
	case errors.Is(err, recurrence.ErrOrdinalNotAllowed):
		return newValidationError("ordinal", "ordinal only applies to monthly series")
	case errors.Is(err, recurrence.ErrInvalidWindow):
		return newValidationError("end", "end must be after start")
	case errors.Is(err, recurrence.ErrInvalidWeekday):
		return newValidationError("weekday", "weekday must name a day of the week")
	case errors.Is(err, recurrence.ErrInvalidOrdinal):
		return newValidationError("ordinal", "ordinal must be first, second, third, fourth or last")
	default:
		return newValidationError("frequency", "frequency must be weekly, biweekly or monthly")
	}
}
