package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ocuweb/classpoints/core"
)

// Activity types as they appear in the persisted activity feed.
const (
	ActivityJoined            = "joined_class"
	ActivityLectureViewed     = "lecture_viewed"
	ActivityPointsAwarded     = "points_awarded"
	ActivityAchievementEarned = "achievement_earned"
)

// maxActivities caps the persisted activity feed; older entries are dropped.
const maxActivities = 100

type (
	// LectureView tracks a single lecture's view state for one student.
	LectureView struct {
		Title         string    `json:"title"`
		FirstViewed   time.Time `json:"firstViewed"`
		LastViewed    time.Time `json:"lastViewed"`
		Views         int       `json:"views"`
		Completed     bool      `json:"completed"`
		TotalViewTime int       `json:"totalViewTime"` // seconds
	}

	// Activity is one entry of the most-recent-first activity feed.
	Activity struct {
		Type            string    `json:"type"`
		Timestamp       time.Time `json:"timestamp"`
		Points          int       `json:"points"`
		Description     string    `json:"description"`
		LectureNumber   string    `json:"lectureNumber,omitempty"`
		LectureTitle    string    `json:"lectureTitle,omitempty"`
		Reason          string    `json:"reason,omitempty"`
		AchievementID   string    `json:"achievementId,omitempty"`
		AchievementName string    `json:"achievementName,omitempty"`
		AchievementIcon string    `json:"achievementIcon,omitempty"`
	}

	// Progress is the per-student gamification record. It is owned by one
	// session context at a time and mutated only through Updater events.
	Progress struct {
		StudentID        string                  `json:"studentId"`
		Name             string                  `json:"name"`
		JoinedDate       time.Time               `json:"joinedDate"`
		LastActive       time.Time               `json:"lastActive"`
		Points           int                     `json:"points"`
		Streak           int                     `json:"streak"`
		ViewedLectures   map[string]*LectureView `json:"viewedLectures"`
		Achievements     []string                `json:"achievements"`
		Activities       []Activity              `json:"activities"`
		SocialActivities map[string]int          `json:"socialActivities,omitempty"`
	}
)

// NewProgress returns a fresh record with the join bonus applied and the
// welcome activity logged.
func NewProgress(studentID string, joinBonus int, now time.Time) *Progress {
	now = now.UTC()
	return &Progress{
		StudentID:      studentID,
		Name:           studentID,
		JoinedDate:     now,
		LastActive:     now,
		Points:         joinBonus,
		Streak:         1,
		ViewedLectures: make(map[string]*LectureView),
		Achievements:   []string{},
		Activities: []Activity{
			{
				Type:        ActivityJoined,
				Points:      joinBonus,
				Timestamp:   now,
				Description: "Welcome to class!",
			},
		},
	}
}

func (p *Progress) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// LogActivity prepends an entry to the feed and enforces the cap.
func (p *Progress) LogActivity(a Activity) {
	p.Activities = append([]Activity{a}, p.Activities...)
	if len(p.Activities) > maxActivities {
		p.Activities = p.Activities[:maxActivities]
	}
}

// ReviewedLectureCount counts lectures viewed more than once.
func (p *Progress) ReviewedLectureCount() int {
	var n int
	for _, lv := range p.ViewedLectures {
		if lv.Views > 1 {
			n++
		}
	}
	return n
}

// RefreshStreak recomputes the consecutive-day streak for a returning
// session and stamps LastActive.
//
// Rules: a same-day return leaves the streak unchanged; a return on a new
// calendar day within 48h of the last activity increments it; a gap of more
// than 48h resets it to 1. All calendar math is UTC.
func (p *Progress) RefreshStreak(now time.Time) {
	now = now.UTC()
	last := p.LastActive.UTC()

	sameDay := last.Year() == now.Year() && last.YearDay() == now.YearDay()
	switch {
	case now.Sub(last) > 48*time.Hour:
		p.Streak = 1
	case !sameDay:
		p.Streak++
	}
	p.LastActive = now
}

// Credentials is a student's login submission.
type Credentials struct {
	StudentID string `json:"studentId" validate:"required,studentid"`
	Pin       string `json:"pin" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.StudentID = core.CleanString(c.StudentID, true /* lower */)
	c.Pin = core.CleanString(c.Pin)
	return validate.Struct(c)
}
