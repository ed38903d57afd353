// Package report builds the instructor-facing class summaries sent by email.
package report

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
)

// BuildDailySummary composes the end-of-day email: current standings plus
// the attendance picture so far.
func BuildDailySummary(
	to mail.Address,
	day time.Time,
	board []student.LeaderboardEntry,
	ov attendance.Overview,
) *core.EmailMessage {
	text := new(strings.Builder)

	fmt.Fprintf(text, "Class summary for %s\n\n", day.Format("Monday, January 2"))

	fmt.Fprintf(text, "Leaderboard (%d students):\n", len(board))
	for _, e := range board {
		fmt.Fprintf(text, "  %2d. %-20s %5d pts  streak %d  badges %d  lectures %d\n",
			e.Rank, displayName(e), e.Points, e.Streak, e.Achievements, e.LecturesViewed)
	}

	fmt.Fprintf(text, "\nAttendance (%d classes held", ov.ClassesHeld)
	if ov.NextClass != "" {
		fmt.Fprintf(text, ", next class %s", ov.NextClass)
	}
	fmt.Fprint(text, "):\n")
	for _, so := range ov.Students {
		fmt.Fprintf(text, "  %-20s present %d  late %d  absent %d  (%.0f%%)\n",
			so.StudentID, so.Present, so.Late, so.Absent, so.Rate*100)
	}

	return &core.EmailMessage{
		To:          []mail.Address{to},
		Subject:     fmt.Sprintf("Daily summary - %s", day.Format("2006-01-02")),
		TextContent: text.String(),
	}
}

func displayName(e student.LeaderboardEntry) string {
	if e.Name != "" {
		return e.Name
	}
	return e.StudentID
}
