package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/recurrence"
)

// Materializer computes the effective sessions of a window from series,
// exceptions and one-offs. It never writes and keeps no cache, so repeated
// calls over unchanged state return identical results.
type Materializer struct {
	series     SeriesRepository
	exceptions ExceptionRepository
	oneOffs    OneOffRepository
	settings   SettingsRepository
	now        func() time.Time
	logger     *slog.Logger
}

// NewMaterializer constructs a materializer with the provided dependencies.
func NewMaterializer(series SeriesRepository, exceptions ExceptionRepository, oneOffs OneOffRepository, settings SettingsRepository, now func() time.Time) *Materializer {
	return NewMaterializerWithLogger(series, exceptions, oneOffs, settings, now, nil)
}

// NewMaterializerWithLogger constructs a materializer with a specified logger.
func NewMaterializerWithLogger(series SeriesRepository, exceptions ExceptionRepository, oneOffs OneOffRepository, settings SettingsRepository, now func() time.Time, logger *slog.Logger) *Materializer {
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		series:     series,
		exceptions: exceptions,
		oneOffs:    oneOffs,
		settings:   settings,
		now:        now,
		logger:     logging.Or(logger),
	}
}

func (m *Materializer) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, m.logger, "service", "Materializer", operation, attrs...)
}

// Materialize returns every active session starting in [windowStart, windowEnd),
// ordered by start then instance id.
func (m *Materializer) Materialize(ctx context.Context, windowStart, windowEnd recurrence.Instant) ([]Session, error) {
	if m == nil {
		return nil, fmt.Errorf("Materializer is nil")
	}
	if windowEnd <= windowStart {
		return nil, nil
	}

	var sessions []Session

	if m.series != nil {
		allSeries, err := m.series.ListSeries(ctx)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, series := range allSeries {
			expanded, err := m.expandSeries(ctx, series, windowStart, windowEnd)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, expanded...)
		}
	}

	if m.oneOffs != nil {
		oneOffs, err := m.oneOffs.ListOneOffs(ctx, windowStart, windowEnd)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, oneOff := range oneOffs {
			if oneOff.Start < windowStart || oneOff.Start >= windowEnd {
				continue
			}
			if session, ok := resolveOneOff(oneOff); ok {
				sessions = append(sessions, session)
			}
		}
	}

	sortSessions(sessions)

	m.loggerWith(ctx, "Materialize",
		"window_start", windowStart,
		"window_end", windowEnd,
	).DebugContext(ctx, "window materialized", "session_count", len(sessions))
	return sessions, nil
}

func (m *Materializer) expandSeries(ctx context.Context, series Series, windowStart, windowEnd recurrence.Instant) ([]Session, error) {
	if series.Paused {
		return nil, nil
	}
	occurrences := recurrence.Generate(series.Rule(), windowStart, windowEnd)
	if len(occurrences) == 0 {
		return nil, nil
	}

	overlays := make(map[recurrence.Instant]*Exception)
	if m.exceptions != nil {
		exceptions, err := m.exceptions.ListExceptions(ctx, series.ID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for i := range exceptions {
			exc := exceptions[i]
			overlays[exc.Key.Start] = &exc
		}
	}

	sessions := make([]Session, 0, len(occurrences))
	for _, occurrence := range occurrences {
		if session, ok := resolveOccurrence(series, occurrence, overlays[occurrence]); ok {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// ForwardWindow returns [now, end of the month ForwardWindowMonths ahead),
// or an explicit number of months when months > 0.
func (m *Materializer) ForwardWindow(ctx context.Context, months int) (recurrence.Instant, recurrence.Instant, error) {
	if months <= 0 {
		settings, err := loadSettings(ctx, m.settings)
		if err != nil {
			return 0, 0, mapRepoError(err)
		}
		months = settings.ForwardWindowMonths
	}
	start := recurrence.FromTime(m.now())
	return start, recurrence.WindowEnd(start, months), nil
}

// Unclaimed returns the sessions in the forward window that have no host.
func (m *Materializer) Unclaimed(ctx context.Context) ([]Session, error) {
	if m == nil {
		return nil, fmt.Errorf("Materializer is nil")
	}
	start, end, err := m.ForwardWindow(ctx, 0)
	if err != nil {
		return nil, err
	}
	sessions, err := m.Materialize(ctx, start, end)
	if err != nil {
		return nil, err
	}

	unclaimed := make([]Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Host == nil {
			unclaimed = append(unclaimed, session)
		}
	}
	return unclaimed, nil
}

// CoverageStats counts sessions and covered sessions over the forward window
// of the given number of months (the global setting when months <= 0).
func (m *Materializer) CoverageStats(ctx context.Context, months int) (CoverageStats, error) {
	if m == nil {
		return CoverageStats{}, fmt.Errorf("Materializer is nil")
	}
	start, end, err := m.ForwardWindow(ctx, months)
	if err != nil {
		return CoverageStats{}, err
	}
	sessions, err := m.Materialize(ctx, start, end)
	if err != nil {
		return CoverageStats{}, err
	}

	stats := CoverageStats{WindowStart: start, WindowEnd: end, Total: len(sessions)}
	for _, session := range sessions {
		if session.Host != nil {
			stats.Covered++
		}
	}
	stats.Unclaimed = stats.Total - stats.Covered
	if stats.Total > 0 {
		stats.Percent = float64(stats.Covered) * 100 / float64(stats.Total)
	}
	return stats, nil
}

// Resolve returns the current effective session addressed by ref. References
// to unknown records, occurrences the rule never generates and cancelled
// sessions all report ErrNotFound.
func (m *Materializer) Resolve(ctx context.Context, ref SessionRef) (Session, error) {
	if m == nil {
		return Session{}, fmt.Errorf("Materializer is nil")
	}

	if !ref.Recurring() {
		if m.oneOffs == nil {
			return Session{}, ErrNotFound
		}
		oneOff, err := m.oneOffs.GetOneOff(ctx, ref.InstanceID)
		if err != nil {
			return Session{}, mapRepoError(err)
		}
		session, ok := resolveOneOff(oneOff)
		if !ok {
			return Session{}, ErrNotFound
		}
		return session, nil
	}

	if m.series == nil {
		return Session{}, ErrNotFound
	}
	series, err := m.series.GetSeries(ctx, ref.SeriesID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	if !m.generates(series, ref.OccurrenceStart) {
		return Session{}, ErrNotFound
	}

	exc, err := m.lookupException(ctx, ref.Key())
	if err != nil {
		return Session{}, err
	}
	session, ok := resolveOccurrence(series, ref.OccurrenceStart, exc)
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// generates reports whether the series produces a base occurrence at instant.
func (m *Materializer) generates(series Series, instant recurrence.Instant) bool {
	if series.Paused {
		return false
	}
	occurrences := recurrence.Generate(series.Rule(), instant, instant+1)
	return len(occurrences) == 1 && occurrences[0] == instant
}

func (m *Materializer) lookupException(ctx context.Context, key recurrence.OccurrenceKey) (*Exception, error) {
	if m.exceptions == nil {
		return nil, nil
	}
	exc, err := m.exceptions.GetException(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, mapRepoError(err)
	}
	return &exc, nil
}

func sortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Start != sessions[j].Start {
			return sessions[i].Start < sessions[j].Start
		}
		return bytes.Compare(sessions[i].InstanceID[:], sessions[j].InstanceID[:]) < 0
	})
}
