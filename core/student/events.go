package student

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownEvent        = errors.New("unknown progress event")
	ErrUnknownSocialAction = errors.New("unknown social action")
)

type (
	// Event is a tracked student action applied to a Progress record.
	Event interface{ event() }

	// LectureViewed records a completed viewing of a lecture. The caller is
	// responsible for the minimum-view-time gate; by the time this event is
	// applied the view counts as complete.
	LectureViewed struct {
		Number  string
		Title   string
		Options ViewOptions
	}

	// PointsAwarded is a manual point grant (or deduction).
	PointsAwarded struct {
		Amount int
		Reason string
	}

	// SocialAction increments a social counter and checks only the social
	// achievements tied to it.
	SocialAction struct {
		Kind string
	}

	// AchievementsGranted merges pre-evaluated achievements into the record.
	AchievementsGranted struct {
		Achievements []Achievement
	}
)

func (LectureViewed) event()       {}
func (PointsAwarded) event()       {}
func (SocialAction) event()        {}
func (AchievementsGranted) event() {}

type ViewOptions struct {
	MinViewTime      int // seconds credited per tracked view
	PointsFirstView  int
	PointsCompletion int
}

func DefaultViewOptions() ViewOptions {
	return ViewOptions{MinViewTime: 30, PointsFirstView: 10, PointsCompletion: 5}
}

// Effects describes what applying an event did, for notification display.
// PointsDelta is the base event award; bonus points of newly granted
// achievements are carried on the entries of Granted.
type Effects struct {
	PointsDelta int
	FirstView   bool
	Completed   bool
	Granted     []Achievement
}

// Updater applies events to Progress records in memory. Persistence is the
// caller's concern and its failure never rolls back an applied event.
type Updater struct {
	evaluator *Evaluator
}

func NewUpdater(evaluator *Evaluator) *Updater {
	return &Updater{evaluator: evaluator}
}

func (u *Updater) Apply(p *Progress, ev Event, now time.Time) (Effects, error) {
	now = now.UTC()
	switch ev := ev.(type) {
	case LectureViewed:
		return u.applyLectureViewed(p, ev, now), nil
	case PointsAwarded:
		return u.applyPointsAwarded(p, ev, now), nil
	case SocialAction:
		return u.applySocialAction(p, ev, now)
	case AchievementsGranted:
		return Effects{Granted: u.grant(p, ev.Achievements, now)}, nil
	}
	return Effects{}, ErrUnknownEvent
}

func (u *Updater) applyLectureViewed(p *Progress, ev LectureViewed, now time.Time) Effects {
	if p.ViewedLectures == nil {
		p.ViewedLectures = make(map[string]*LectureView)
	}

	var eff Effects
	lv, ok := p.ViewedLectures[ev.Number]
	switch {
	case !ok:
		// first view counts as complete; the min-view-time gate already ran
		p.ViewedLectures[ev.Number] = &LectureView{
			Title:         ev.Title,
			FirstViewed:   now,
			LastViewed:    now,
			Views:         1,
			Completed:     true,
			TotalViewTime: ev.Options.MinViewTime,
		}
		eff.FirstView = true
		eff.Completed = true
		eff.PointsDelta = ev.Options.PointsFirstView
	case !lv.Completed:
		lv.Completed = true
		lv.Views++
		lv.LastViewed = now
		lv.TotalViewTime += ev.Options.MinViewTime
		eff.Completed = true
		eff.PointsDelta = ev.Options.PointsCompletion
	default:
		lv.Views++
		lv.LastViewed = now
		lv.TotalViewTime += ev.Options.MinViewTime
	}

	if eff.PointsDelta > 0 {
		p.Points += eff.PointsDelta
		desc := fmt.Sprintf("Completed Lecture %s: %s", ev.Number, ev.Title)
		if eff.FirstView {
			desc = fmt.Sprintf("First complete view of Lecture %s: %s", ev.Number, ev.Title)
		}
		p.LogActivity(Activity{
			Type:          ActivityLectureViewed,
			Timestamp:     now,
			Points:        eff.PointsDelta,
			Description:   desc,
			LectureNumber: ev.Number,
			LectureTitle:  ev.Title,
		})
	}

	eff.Granted = u.grant(p, u.evaluator.Evaluate(p, now), now)
	return eff
}

func (u *Updater) applyPointsAwarded(p *Progress, ev PointsAwarded, now time.Time) Effects {
	p.Points += ev.Amount
	p.LogActivity(Activity{
		Type:        ActivityPointsAwarded,
		Timestamp:   now,
		Points:      ev.Amount,
		Reason:      ev.Reason,
		Description: fmt.Sprintf("Points awarded: %s", ev.Reason),
	})
	return Effects{PointsDelta: ev.Amount}
}

func (u *Updater) applySocialAction(p *Progress, ev SocialAction, now time.Time) (Effects, error) {
	counter, ok := SocialCounters[ev.Kind]
	if !ok {
		return Effects{}, ErrUnknownSocialAction
	}
	if p.SocialActivities == nil {
		p.SocialActivities = make(map[string]int)
	}
	p.SocialActivities[counter]++

	return Effects{Granted: u.grant(p, u.evaluator.EvaluateSocial(p, counter), now)}, nil
}

// grant merges achievements into the record, skipping held ones: id
// appended, bonus points added, activity logged. Returns what was actually
// granted.
func (u *Updater) grant(p *Progress, achievements []Achievement, now time.Time) []Achievement {
	var granted []Achievement
	for _, a := range achievements {
		if p.HasAchievement(a.ID) {
			continue
		}
		p.Achievements = append(p.Achievements, a.ID)
		if a.Points > 0 {
			p.Points += a.Points
		}
		p.LogActivity(Activity{
			Type:            ActivityAchievementEarned,
			Timestamp:       now,
			Points:          a.Points,
			Description:     fmt.Sprintf("Earned achievement: %s", a.Name),
			AchievementID:   a.ID,
			AchievementName: a.Name,
			AchievementIcon: a.Icon,
		})
		granted = append(granted, a)
	}
	return granted
}
