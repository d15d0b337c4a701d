// Package cycle derives where a user currently is in their tracked cycle.
package cycle

import (
	"errors"
	"time"

	"github.com/bloomhealth/bloom/models"
)

// ErrInvalidRule is returned for a phase rule whose day range is empty.
var ErrInvalidRule = errors.New("phase rule day range is empty")

// Phase identifies a labelled segment of a cycle.
type Phase struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultPhase is reported whenever a cycle is logged and no configured rule matches.
var DefaultPhase = Phase{ID: "tracking", Label: "Cycle in progress"}

// PhaseInfo is the derived position of today in the current cycle. Values are not clamped:
// DayOfCycle may be <= 0 or exceed CycleLength, DaysUntilNext may be negative.
type PhaseInfo struct {
	StartDate     time.Time `json:"start_date"`
	DayOfCycle    int       `json:"day_of_cycle"`
	DaysUntilNext int       `json:"days_until_next"`
	CycleLength   int       `json:"cycle_length"`
	Phase         Phase     `json:"phase"`
}

// PhaseMapper labels a day of the cycle.
type PhaseMapper interface {
	PhaseFor(dayOfCycle, cycleLength int) Phase
}

// SinglePhase maps every day to the same phase.
type SinglePhase struct {
	Phase Phase
}

func (s SinglePhase) PhaseFor(int, int) Phase {
	return s.Phase
}

// PhaseRule labels the inclusive day range [FromDay, ToDay].
type PhaseRule struct {
	FromDay int
	ToDay   int
	ID      string
	Label   string
}

// RuleMapper applies explicitly configured rules in order; unmatched days get Fallback.
type RuleMapper struct {
	rules    []PhaseRule
	fallback Phase
}

// NewRuleMapper validates rules and returns a mapper over them.
func NewRuleMapper(rules []PhaseRule, fallback Phase) (*RuleMapper, error) {
	for _, r := range rules {
		if r.FromDay > r.ToDay {
			return nil, ErrInvalidRule
		}
	}
	cp := make([]PhaseRule, len(rules))
	copy(cp, rules)
	return &RuleMapper{rules: cp, fallback: fallback}, nil
}

func (m *RuleMapper) PhaseFor(day, _ int) Phase {
	for _, r := range m.rules {
		if day >= r.FromDay && day <= r.ToDay {
			return Phase{ID: r.ID, Label: r.Label}
		}
	}
	return m.fallback
}

// Estimator turns the latest cycle start into a PhaseInfo.
type Estimator struct {
	mapper PhaseMapper
}

// NewEstimator returns an Estimator; a nil mapper means the single default phase.
func NewEstimator(mapper PhaseMapper) *Estimator {
	if mapper == nil {
		mapper = SinglePhase{Phase: DefaultPhase}
	}
	return &Estimator{mapper: mapper}
}

// Estimate returns nil when no cycle has been logged.
func (e *Estimator) Estimate(latestStart *time.Time, today time.Time, avgCycleLength int) *PhaseInfo {
	if latestStart == nil {
		return nil
	}
	day := DaysBetween(*latestStart, today) + 1
	return &PhaseInfo{
		StartDate:     models.DateOf(*latestStart),
		DayOfCycle:    day,
		DaysUntilNext: avgCycleLength - day,
		CycleLength:   avgCycleLength,
		Phase:         e.mapper.PhaseFor(day, avgCycleLength),
	}
}

// Estimate uses the single default phase.
func Estimate(latestStart *time.Time, today time.Time, avgCycleLength int) *PhaseInfo {
	return NewEstimator(nil).Estimate(latestStart, today, avgCycleLength)
}

// DaysBetween counts calendar days from a to b, ignoring clock time and DST shifts.
func DaysBetween(a, b time.Time) int {
	return int(civil(b).Sub(civil(a)).Hours() / 24)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Latest picks the current cycle: maximum StartDate, ties going to the most recently inserted event.
func Latest(events []models.CycleEvent) *models.CycleEvent {
	var best *models.CycleEvent
	for i := range events {
		ev := &events[i]
		if best == nil {
			best = ev
			continue
		}
		switch d := DaysBetween(best.StartDate, ev.StartDate); {
		case d > 0:
			best = ev
		case d == 0 && ev.ID > best.ID:
			best = ev
		}
	}
	return best
}
