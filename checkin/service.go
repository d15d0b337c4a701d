package checkin

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bloomhealth/bloom/models"
	"github.com/bloomhealth/bloom/prompts"
)

// Result is the outcome reported to clients for a mutation.
type Result string

const (
	ResultDismissed       Result = "dismissed"
	ResultCompleted       Result = "completed"
	ResultAlreadyResolved Result = "already_resolved"
	ResultOK              Result = "ok"
	ResultNotActionable   Result = "not_actionable"
)

// Store persists check-ins. Implementations must back (user, date) with a uniqueness constraint.
type Store interface {
	// FindByUserDate returns ErrNotFound when the user has no record for day.
	FindByUserDate(ctx context.Context, userID uint, day time.Time) (*models.CheckIn, error)
	// CreateIfAbsent inserts rec unless a record for the same (user, date) exists.
	// It reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, rec *models.CheckIn) (bool, error)
	// UpdateIfPending writes status, prompt and response of rec only while the stored row is still pending
	// and, when expectPrompt is non-empty, still shows expectPrompt. It reports whether the row was updated.
	UpdateIfPending(ctx context.Context, rec *models.CheckIn, expectPrompt string) (bool, error)
}

// TodayView is the read-path payload attached to every page.
type TodayView struct {
	ShowCheckIn bool            `json:"show_checkin"`
	CheckIn     *models.CheckIn `json:"checkin"`
}

// Service runs the daily check-in lifecycle on top of a Store.
type Service struct {
	store    Store
	selector *prompts.Selector
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for race and write diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(store Store, selector *prompts.Selector, opts ...Option) *Service {
	s := &Service{store: store, selector: selector, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateToday returns the user's record for today, creating a pending one on first access.
func (s *Service) GetOrCreateToday(ctx context.Context, userID uint, today time.Time) (*models.CheckIn, error) {
	day := models.DateOf(today)

	rec, err := s.store.FindByUserDate(ctx, userID, day)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := &models.CheckIn{
		UserID:     userID,
		Date:       day,
		Status:     models.CheckInPending,
		PromptText: s.selector.Pick(""),
	}
	created, err := s.store.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Debug("check-in created concurrently, re-fetching",
			zap.Uint("user_id", userID), zap.Time("date", day))
	}

	// Always read back so a losing creator returns the winner's row.
	return s.store.FindByUserDate(ctx, userID, day)
}

// Today builds the read-path view, creating today's record when needed.
func (s *Service) Today(ctx context.Context, userID uint, today time.Time) (TodayView, error) {
	rec, err := s.GetOrCreateToday(ctx, userID, today)
	if err != nil {
		return TodayView{}, err
	}
	return TodayView{ShowCheckIn: Visible(rec), CheckIn: rec}, nil
}

// Dismiss resolves today's prompt without an answer.
func (s *Service) Dismiss(ctx context.Context, userID uint, today time.Time) (Result, error) {
	_, err := s.apply(ctx, userID, today, func(models.CheckIn) Action {
		return Action{Kind: ActionDismiss}
	})
	switch {
	case errors.Is(err, ErrNotActionable):
		return ResultAlreadyResolved, nil
	case err != nil:
		return "", err
	}
	return ResultDismissed, nil
}

// Complete stores the trimmed response and resolves today's prompt.
func (s *Service) Complete(ctx context.Context, userID uint, today time.Time, response string) (Result, error) {
	_, err := s.apply(ctx, userID, today, func(models.CheckIn) Action {
		return Action{Kind: ActionComplete, Response: response}
	})
	switch {
	case errors.Is(err, ErrNotActionable):
		return ResultAlreadyResolved, nil
	case err != nil:
		return "", err
	}
	return ResultCompleted, nil
}

const maxRefreshAttempts = 3

// Refresh swaps today's prompt for a different one while it is still pending.
// Losing to a concurrent refresh retries against the prompt that refresh stored.
func (s *Service) Refresh(ctx context.Context, userID uint, today time.Time) (Result, string, error) {
	for attempt := 0; attempt < maxRefreshAttempts; attempt++ {
		next, err := s.apply(ctx, userID, today, func(cur models.CheckIn) Action {
			return Action{Kind: ActionRefresh, Prompt: s.selector.Pick(cur.PromptText)}
		})
		if err == nil {
			return ResultOK, next.PromptText, nil
		}
		if !errors.Is(err, ErrNotActionable) {
			return "", "", err
		}

		rec, err := s.store.FindByUserDate(ctx, userID, models.DateOf(today))
		if errors.Is(err, ErrNotFound) || (err == nil && !Visible(rec)) {
			return ResultNotActionable, "", nil
		}
		if err != nil {
			return "", "", err
		}
	}
	return ResultNotActionable, "", nil
}

// apply loads today's record, runs the transition chosen by build and writes it back
// conditionally. A missing record or a lost race yields ErrNotActionable.
func (s *Service) apply(ctx context.Context, userID uint, today time.Time, build func(models.CheckIn) Action) (*models.CheckIn, error) {
	day := models.DateOf(today)

	rec, err := s.store.FindByUserDate(ctx, userID, day)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotActionable
	}
	if err != nil {
		return nil, err
	}

	act := build(*rec)
	next, err := Transition(*rec, act)
	if err != nil {
		return nil, err
	}

	// a refresh must replace the prompt it excluded, not one another refresh just stored
	var expectPrompt string
	if act.Kind == ActionRefresh {
		expectPrompt = rec.PromptText
	}
	ok, err := s.store.UpdateIfPending(ctx, &next, expectPrompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("check-in resolved concurrently",
			zap.Uint("user_id", userID), zap.Uint("checkin_id", rec.ID))
		return nil, ErrNotActionable
	}
	return &next, nil
}
