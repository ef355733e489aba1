package escalation

import (
	"sort"
	"time"
)

type ViolationType string

const (
	ViolationLateArrival    ViolationType = "late_arrival"
	ViolationAbsence        ViolationType = "absence"
	ViolationEarlyDeparture ViolationType = "early_departure"
	ViolationBreak          ViolationType = "break_violation"
)

func (v ViolationType) IsValid() bool {
	switch v {
	case ViolationLateArrival, ViolationAbsence, ViolationEarlyDeparture, ViolationBreak:
		return true
	}
	return false
}

// DefaultMultiplier applies when no active rule or tier matches.
const DefaultMultiplier = 1.0

// Tier scales a charge once the occurrence count reaches OccurrenceCount.
type Tier struct {
	OccurrenceCount int     `json:"occurrence_count"`
	Multiplier      float64 `json:"multiplier"`
}

// Rule is the persisted escalation configuration for one violation type.
type Rule struct {
	ID                 string
	CompanyID          string
	RuleName           string
	ViolationType      ViolationType
	LookbackPeriodDays int
	Tiers              []Tier
	ResetAfterDays     *int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MultiplierFor walks the tiers from the highest threshold down and returns
// the multiplier of the first one met by occurrences.
func (r Rule) MultiplierFor(occurrences int) float64 {
	tiers := make([]Tier, len(r.Tiers))
	copy(tiers, r.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].OccurrenceCount > tiers[j].OccurrenceCount
	})

	for _, t := range tiers {
		if occurrences >= t.OccurrenceCount {
			return t.Multiplier
		}
	}
	return DefaultMultiplier
}

// LookbackStart is the earliest instant a prior charge counts toward at.
func (r Rule) LookbackStart(at time.Time) time.Time {
	return at.AddDate(0, 0, -r.LookbackPeriodDays)
}

// ResetsAfter reports whether a quiet period since lastPrior wipes the history.
func (r Rule) ResetsAfter(lastPrior, at time.Time) bool {
	if r.ResetAfterDays == nil {
		return false
	}
	return !lastPrior.After(at.AddDate(0, 0, -*r.ResetAfterDays))
}

// Charge is a monetary penalty recorded for one violation.
type Charge struct {
	ID            string
	CompanyID     string
	EmployeeID    string
	ViolationType ViolationType
	BaseAmount    float64
	Multiplier    float64
	Amount        float64
	OccurredAt    time.Time
	AttendanceID  *string
	RuleID        *string
	CreatedAt     time.Time
}
