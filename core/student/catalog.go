package student

import "time"

type AchievementType string

const (
	TypeProgress  AchievementType = "progress"
	TypeStreak    AchievementType = "streak"
	TypeSkill     AchievementType = "skill"
	TypeSpecial   AchievementType = "special"
	TypeMilestone AchievementType = "milestone"
	TypeSocial    AchievementType = "social"
)

// Social counter names as stored in Progress.SocialActivities.
const (
	CounterLeaderboardViews = "leaderboardViews"
	CounterShowcaseUpdates  = "showcaseUpdates"
	CounterHelpGiven        = "helpGiven"
	CounterInstructorAwards = "instructorAwards"
)

// Social action kinds accepted by the API, mapped to their counters.
var SocialCounters = map[string]string{
	"view_leaderboard": CounterLeaderboardViews,
	"update_showcase":  CounterShowcaseUpdates,
	"help_classmate":   CounterHelpGiven,
	"instructor_award": CounterInstructorAwards,
}

type (
	// Achievement is one immutable catalog entry. Which unlock parameters
	// apply depends on Type: Threshold for progress/streak/milestone/social,
	// Lectures for skill, Qualifies for special.
	Achievement struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Icon   string          `json:"icon"`
		Points int             `json:"points"`
		Type   AchievementType `json:"type"`

		Threshold int                                   `json:"threshold,omitempty"`
		Lectures  []string                              `json:"lectures,omitempty"`
		Counter   string                                `json:"-"`
		Qualifies func(p *Progress, now time.Time) bool `json:"-"`
	}

	// Catalog is the ordered achievement table; declaration order decides
	// grant order when several achievements qualify in one pass.
	Catalog []Achievement
)

func (c Catalog) Get(id string) (Achievement, bool) {
	for _, a := range c {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// DefaultCatalog returns the full course catalog. Loaded once at startup;
// the evaluator takes it as an injected dependency so tests can swap in
// custom catalogs.
func DefaultCatalog() Catalog {
	return Catalog{
		// Progress
		{ID: "first_steps", Name: "First Steps", Icon: "🌱", Points: 10, Type: TypeProgress, Threshold: 1},
		{ID: "quick_learner", Name: "Quick Learner", Icon: "📚", Points: 25, Type: TypeProgress, Threshold: 5},
		{ID: "dedicated_student", Name: "Dedicated Student", Icon: "🎓", Points: 50, Type: TypeProgress, Threshold: 10},
		{ID: "knowledge_seeker", Name: "Knowledge Seeker", Icon: "🔍", Points: 100, Type: TypeProgress, Threshold: 20},
		{ID: "course_master", Name: "Course Master", Icon: "👨‍🎓", Points: 500, Type: TypeProgress, Threshold: 31},

		// Streak
		{ID: "consistent", Name: "Consistent", Icon: "🔥", Points: 30, Type: TypeStreak, Threshold: 3},
		{ID: "week_warrior", Name: "Week Warrior", Icon: "💪", Points: 75, Type: TypeStreak, Threshold: 7},
		{ID: "unstoppable", Name: "Unstoppable", Icon: "⚡", Points: 150, Type: TypeStreak, Threshold: 14},
		{ID: "legendary_streak", Name: "Legendary Streak", Icon: "🌟", Points: 500, Type: TypeStreak, Threshold: 30},

		// Skill
		{ID: "html_hero", Name: "HTML Hero", Icon: "📝", Points: 50, Type: TypeSkill, Lectures: []string{"3", "4", "5", "6"}},
		{ID: "css_wizard", Name: "CSS Wizard", Icon: "🎨", Points: 50, Type: TypeSkill, Lectures: []string{"7", "8", "11", "12", "13", "14"}},
		{ID: "js_ninja", Name: "JavaScript Ninja", Icon: "⚔️", Points: 100, Type: TypeSkill, Lectures: []string{"17", "18", "19", "20", "21", "22", "23", "24"}},
		{ID: "git_guru", Name: "Git Guru", Icon: "🔧", Points: 75, Type: TypeSkill, Lectures: []string{"6", "9"}},

		// Special
		{ID: "early_bird", Name: "Early Bird", Icon: "🌅", Points: 25, Type: TypeSpecial,
			Qualifies: func(p *Progress, now time.Time) bool { return now.Hour() < 7 }},
		{ID: "night_owl", Name: "Night Owl", Icon: "🦉", Points: 25, Type: TypeSpecial,
			Qualifies: func(p *Progress, now time.Time) bool { return now.Hour() < 4 }},
		{ID: "weekend_warrior", Name: "Weekend Warrior", Icon: "🏖️", Points: 30, Type: TypeSpecial,
			Qualifies: func(p *Progress, now time.Time) bool {
				return now.Weekday() == time.Saturday || now.Weekday() == time.Sunday
			}},
		{ID: "perfectionist", Name: "Perfectionist", Icon: "💯", Points: 50, Type: TypeSpecial,
			Qualifies: func(p *Progress, now time.Time) bool { return p.ReviewedLectureCount() >= 5 }},

		// Milestone
		{ID: "rising_star", Name: "Rising Star", Icon: "⭐", Points: 0, Type: TypeMilestone, Threshold: 100},
		{ID: "achiever", Name: "Achiever", Icon: "🎯", Points: 0, Type: TypeMilestone, Threshold: 500},
		{ID: "champion", Name: "Champion", Icon: "🏆", Points: 0, Type: TypeMilestone, Threshold: 1000},
		{ID: "legend", Name: "Legend", Icon: "👑", Points: 0, Type: TypeMilestone, Threshold: 2000},

		// Social
		{ID: "social_butterfly", Name: "Social Butterfly", Icon: "🦋", Points: 20, Type: TypeSocial, Counter: CounterLeaderboardViews, Threshold: 10},
		{ID: "showcase_star", Name: "Showcase Star", Icon: "✨", Points: 30, Type: TypeSocial, Counter: CounterShowcaseUpdates, Threshold: 3},
		{ID: "team_player", Name: "Team Player", Icon: "🤝", Points: 50, Type: TypeSocial, Counter: CounterHelpGiven, Threshold: 5},
		{ID: "ocu_hero", Name: "OCU Hero", Icon: "🦅", Points: 200, Type: TypeSocial, Counter: CounterInstructorAwards, Threshold: 1},
	}
}
