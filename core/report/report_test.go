package report

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
	testutil "github.com/ocuweb/classpoints/tests"
)

func Test_BuildDailySummary(t *testing.T) {
	to := mail.Address{Name: "Instructor", Address: "teach@example.com"}
	day := time.Date(2025, time.September, 4, 18, 0, 0, 0, time.UTC)

	board := []student.LeaderboardEntry{
		{Rank: 1, StudentID: "ben", Name: "Ben", Points: 120, Streak: 4, Achievements: 3, LecturesViewed: 6},
		{Rank: 2, StudentID: "amy", Points: 80, Streak: 2, Achievements: 2, LecturesViewed: 4},
	}
	ov := attendance.Overview{
		ClassesHeld: 3,
		NextClass:   "2025-09-09",
		Students: []attendance.StudentOverview{
			{StudentID: "amy", Present: 3, Rate: 1},
			{StudentID: "ben", Present: 2, Late: 1, Absent: 1, Rate: 2.0 / 3},
		},
	}

	msg := BuildDailySummary(to, day, board, ov)

	if len(msg.To) != 1 || msg.To[0] != to {
		t.Errorf("to = %v, want %v", msg.To, to)
	}
	if msg.Subject != "Daily summary - 2025-09-04" {
		t.Errorf("subject = %q", msg.Subject)
	}
	// Ben is shown by display name; amy falls back to the id.
	want := strings.Join([]string{
		"Class summary for Thursday, September 4",
		"",
		"Leaderboard (2 students):",
		"   1. Ben" + strings.Repeat(" ", 20) + "120 pts  streak 4  badges 3  lectures 6",
		"   2. amy" + strings.Repeat(" ", 21) + "80 pts  streak 2  badges 2  lectures 4",
		"",
		"Attendance (3 classes held, next class 2025-09-09):",
		"  amy" + strings.Repeat(" ", 18) + "present 3  late 0  absent 0  (100%)",
		"  ben" + strings.Repeat(" ", 18) + "present 2  late 1  absent 1  (67%)",
		"",
	}, "\n")
	if diff := testutil.Diff(want, msg.TextContent); diff != "" {
		t.Errorf("summary mismatch:\n%s", diff)
	}
	if !msg.HasContent() || !msg.HasRecipients() {
		t.Error("message not sendable")
	}
}
