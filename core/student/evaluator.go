package student

import "time"

// Evaluator decides which catalog achievements a record newly qualifies for.
// It never mutates the record; granting is the Updater's job.
type Evaluator struct {
	catalog Catalog
}

func NewEvaluator(catalog Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

func (e *Evaluator) Catalog() Catalog {
	return e.catalog
}

// Evaluate returns every not-yet-held achievement whose unlock condition is
// satisfied by `p` at instant `now`, in catalog declaration order.
func (e *Evaluator) Evaluate(p *Progress, now time.Time) []Achievement {
	var qualified []Achievement
	for _, a := range e.catalog {
		if p.HasAchievement(a.ID) {
			continue
		}
		if e.satisfied(a, p, now) {
			qualified = append(qualified, a)
		}
	}
	return qualified
}

// EvaluateSocial restricts evaluation to social achievements tied to the
// given counter; used for the post-increment check after a social action.
func (e *Evaluator) EvaluateSocial(p *Progress, counter string) []Achievement {
	var qualified []Achievement
	for _, a := range e.catalog {
		if a.Type != TypeSocial || a.Counter != counter || p.HasAchievement(a.ID) {
			continue
		}
		if p.SocialActivities[counter] >= a.Threshold {
			qualified = append(qualified, a)
		}
	}
	return qualified
}

func (e *Evaluator) satisfied(a Achievement, p *Progress, now time.Time) bool {
	switch a.Type {
	case TypeProgress:
		return len(p.ViewedLectures) >= a.Threshold
	case TypeStreak:
		return p.Streak >= a.Threshold
	case TypeSkill:
		for _, num := range a.Lectures {
			if _, ok := p.ViewedLectures[num]; !ok {
				return false
			}
		}
		return len(a.Lectures) > 0
	case TypeMilestone:
		return p.Points >= a.Threshold
	case TypeSpecial:
		return a.Qualifies != nil && a.Qualifies(p, now)
	case TypeSocial:
		return a.Counter != "" && p.SocialActivities[a.Counter] >= a.Threshold
	}
	return false
}
