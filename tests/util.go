package testutil

import (
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/student"
)

// NopLogger discards everything; Fatal still fails the test.
type NopLogger struct {
	T *testing.T
}

var _ core.Logger = (*NopLogger)(nil)

func (l NopLogger) Debug(msg string, args ...interface{}) {}
func (l NopLogger) Info(msg string, args ...interface{})  {}
func (l NopLogger) Warn(msg string, args ...interface{})  {}
func (l NopLogger) Error(msg string, args ...interface{}) {}
func (l NopLogger) Fatal(msg string, args ...interface{}) {
	if l.T != nil {
		l.T.Fatal(append([]interface{}{msg}, args...)...)
	}
}

// TestConfig returns a Config with gamification defaults, bypassing env loading.
func TestConfig() *core.Config {
	return &core.Config{
		Debug:            true,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "ClassPoints",
		SecretKey:        "test-secret",
		JoinBonus:        10,
		PointsFirstView:  10,
		PointsCompletion: 5,
		MinViewTime:      30,
		SyncDebounce:     time.Millisecond,
		SaveTimeout:      time.Second,
		TermStart:        "2025-08-26",
		TermEnd:          "2025-12-11",
		Holidays:         []string{"2025-11-27"},
		Server: core.ServerConfig{
			ShutdownTimeout:     time.Second,
			JWTExpirationDelta:  time.Hour,
			AdminSessionTimeout: time.Hour,
		},
	}
}

// CreateProgress builds a bare record without the join bonus, for tests that
// need full control over the starting state.
func CreateProgress(t *testing.T, studentID string, lastActive time.Time) *student.Progress {
	t.Helper()
	return &student.Progress{
		StudentID:      studentID,
		Name:           studentID,
		JoinedDate:     lastActive,
		LastActive:     lastActive,
		ViewedLectures: make(map[string]*student.LectureView),
		Achievements:   []string{},
	}
}

// Weekday10AM is a fixed evaluation instant that triggers no time-based
// special achievement (Wednesday, 10:00 UTC).
var Weekday10AM = time.Date(2025, time.September, 3, 10, 0, 0, 0, time.UTC)

// Diff returns a unified diff of two multi-line strings, or "" if they match.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return diff
}
