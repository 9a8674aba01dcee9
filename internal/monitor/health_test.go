package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func postedDaysAgo(days float64) *time.Time {
	t := now.Add(-time.Duration(days * float64(day)))
	return &t
}

func pendingIn(d time.Duration) store.Post {
	return store.Post{ID: store.GenNewID(), Status: store.PostPending, ScheduledTime: now.Add(d), Content: "Open house this weekend", ImageURL: "https://img/x.jpg"}
}

func TestAssess(t *testing.T) {
	tests := []struct {
		name       string
		strategy   store.Strategy
		wantStatus string
		wantMissed int
		wantIssues []string
	}{
		{
			name:       "four day gap with nothing pending",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(4)},
			wantStatus: StatusCritical,
			wantMissed: 4,
			wantIssues: []string{"No posts published for 4 days", "No upcoming posts scheduled"},
		},
		{
			name:       "posted a day ago with upcoming post",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(1.0), Posts: []store.Post{pendingIn(time.Hour)}},
			wantStatus: StatusHealthy,
			wantMissed: 0,
		},
		{
			name:       "two day gap",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(2), Posts: []store.Post{pendingIn(time.Hour)}},
			wantStatus: StatusAtRisk,
			wantMissed: 2,
			wantIssues: []string{"Last post was 2.0 days ago"},
		},
		{
			name:       "recent post but nothing upcoming",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(0.5)},
			wantStatus: StatusAtRisk,
			wantIssues: []string{"No upcoming posts scheduled"},
		},
		{
			name:       "overdue pending post is not upcoming",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(0.5), Posts: []store.Post{pendingIn(-time.Hour)}},
			wantStatus: StatusAtRisk,
			wantIssues: []string{"No upcoming posts scheduled"},
		},
		{
			name:       "never posted falls back to creation time",
			strategy:   store.Strategy{CreatedAt: now.Add(-5 * day), Posts: []store.Post{pendingIn(time.Hour)}},
			wantStatus: StatusCritical,
			wantMissed: 5,
			wantIssues: []string{"No posts published for 5 days"},
		},
		{
			name:       "exactly three days is at risk",
			strategy:   store.Strategy{LastPostedAt: postedDaysAgo(3), Posts: []store.Post{pendingIn(time.Hour)}},
			wantStatus: StatusAtRisk,
			wantMissed: 3,
			wantIssues: []string{"Last post was 3.0 days ago"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Assess(tt.strategy, now)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantMissed, v.MissedPosts)
			assert.Equal(t, tt.wantIssues, v.Issues)
		})
	}
}

func TestAlertMessage(t *testing.T) {
	tests := []struct {
		name string
		v    Verdict
		want string
	}{
		{"critical without upcoming", Verdict{Status: StatusCritical, GapDays: 4.2}, "No posts published for over 3 days; No upcoming posts scheduled"},
		{"critical with upcoming", Verdict{Status: StatusCritical, GapDays: 9, PendingCount: 1}, "No posts published for over 3 days"},
		{"gap at risk", Verdict{Status: StatusAtRisk, GapDays: 1.67, PendingCount: 2}, "Last post was over 1.5 days ago"},
		{"nothing upcoming only", Verdict{Status: StatusAtRisk, GapDays: 0.4}, "No upcoming posts scheduled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.AlertMessage())
		})
	}

	// Same condition a few hours apart keeps one message.
	st := store.Strategy{LastPostedAt: postedDaysAgo(1.67), Posts: []store.Post{pendingIn(72 * time.Hour)}}
	assert.Equal(t, Assess(st, now).AlertMessage(), Assess(st, now.Add(5*time.Hour)).AlertMessage())
}

func TestVerdictSeverity(t *testing.T) {
	assert.Equal(t, store.SeverityCritical, Verdict{Status: StatusCritical}.Severity())
	assert.Equal(t, store.SeverityWarning, Verdict{Status: StatusAtRisk}.Severity())
}
