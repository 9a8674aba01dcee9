package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// Verdict statuses.
const (
	StatusHealthy  = "healthy"
	StatusAtRisk   = "at_risk"
	StatusCritical = "critical"
)

const (
	criticalGapDays = 3.0
	atRiskGapDays   = 1.5
	day             = 24 * time.Hour
)

// Verdict is the transient health assessment of one strategy.
type Verdict struct {
	Status       string     `json:"status"`
	LastPostDate *time.Time `json:"last_post_date,omitempty"`
	MissedPosts  int        `json:"missed_posts"`
	Issues       []string   `json:"issues,omitempty"`
	GapDays      float64    `json:"gap_days"`
	PendingCount int        `json:"pending_count"`
}

// Assess grades a strategy's publishing cadence at now. The gap is measured
// from the latest posted post, or from the strategy's creation when nothing
// has been posted yet. Only pending posts scheduled after now count as upcoming.
func Assess(st store.Strategy, now time.Time) Verdict {
	ref := st.CreatedAt
	if st.LastPostedAt != nil {
		ref = *st.LastPostedAt
	}
	gap := now.Sub(ref).Hours() / 24
	if gap < 0 {
		gap = 0
	}

	upcoming := 0
	for _, p := range st.Posts {
		if p.Status == store.PostPending && p.ScheduledTime.After(now) {
			upcoming++
		}
	}

	v := Verdict{
		Status:       StatusHealthy,
		LastPostDate: st.LastPostedAt,
		GapDays:      gap,
		PendingCount: upcoming,
	}

	switch {
	case gap > criticalGapDays:
		v.Status = StatusCritical
		v.Issues = append(v.Issues, fmt.Sprintf("No posts published for %d days", int(math.Floor(gap))))
	case gap > atRiskGapDays:
		v.Status = StatusAtRisk
		v.Issues = append(v.Issues, fmt.Sprintf("Last post was %.1f days ago", gap))
	}

	if upcoming == 0 {
		v.Issues = append(v.Issues, "No upcoming posts scheduled")
		if v.Status != StatusCritical {
			v.Status = StatusAtRisk
		}
	}

	if gap > 1 {
		v.MissedPosts = int(math.Floor(gap))
	}
	return v
}

// AlertMessage is the alert text for a non-healthy verdict. Unlike Issues it
// names thresholds instead of measured gaps, so an unchanged condition keeps
// the same message from cycle to cycle and stays deduplicated.
func (v Verdict) AlertMessage() string {
	var parts []string
	switch {
	case v.GapDays > criticalGapDays:
		parts = append(parts, fmt.Sprintf("No posts published for over %g days", criticalGapDays))
	case v.GapDays > atRiskGapDays:
		parts = append(parts, fmt.Sprintf("Last post was over %g days ago", atRiskGapDays))
	}
	if v.PendingCount == 0 {
		parts = append(parts, "No upcoming posts scheduled")
	}
	return strings.Join(parts, "; ")
}

// Severity maps a non-healthy status to an alert severity.
func (v Verdict) Severity() string {
	if v.Status == StatusCritical {
		return store.SeverityCritical
	}
	return store.SeverityWarning
}
