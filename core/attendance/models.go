package attendance

import (
	"time"
)

// DateFormat is the wire and storage format for class dates.
const DateFormat = "2006-01-02"

type (
	// Record is one student's attendance mark for one class date.
	Record struct {
		StudentID string    `json:"studentId"`
		Date      string    `json:"date"` // DateFormat
		IsLate    bool      `json:"isLate,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	// Schedule describes when the class meets over a term.
	Schedule struct {
		TermStart time.Time
		TermEnd   time.Time
		Weekdays  []time.Weekday
		Holidays  map[string]bool // DateFormat keys
	}

	// StudentOverview summarizes one student's attendance over the term.
	StudentOverview struct {
		StudentID string  `json:"studentId"`
		Present   int     `json:"present"`
		Late      int     `json:"late"`
		Absent    int     `json:"absent"`
		Rate      float64 `json:"rate"` // present / classes held so far
	}

	// Overview is the class-wide attendance summary.
	Overview struct {
		ClassesHeld int               `json:"classesHeld"`
		NextClass   string            `json:"nextClass,omitempty"`
		Students    []StudentOverview `json:"students"`
	}
)

// NewSchedule builds a Tuesday/Thursday schedule between the term bounds,
// skipping the listed holiday dates.
func NewSchedule(termStart, termEnd time.Time, holidays []string) Schedule {
	hmap := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		hmap[h] = true
	}
	return Schedule{
		TermStart: termStart,
		TermEnd:   termEnd,
		Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
		Holidays:  hmap,
	}
}

// ClassDates returns every scheduled class date in the term, ascending.
func (s Schedule) ClassDates() []string {
	var dates []string
	for d := s.TermStart; !d.After(s.TermEnd); d = d.AddDate(0, 0, 1) {
		if s.isClassDay(d) {
			dates = append(dates, d.Format(DateFormat))
		}
	}
	return dates
}

// HeldBefore counts class dates strictly before the given instant's date.
func (s Schedule) HeldBefore(now time.Time) []string {
	today := now.UTC().Format(DateFormat)
	var dates []string
	for _, d := range s.ClassDates() {
		if d >= today {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// NextClass returns the first class date on or after the given instant's
// date, or "" when the term is over.
func (s Schedule) NextClass(now time.Time) string {
	today := now.UTC().Format(DateFormat)
	for _, d := range s.ClassDates() {
		if d >= today {
			return d
		}
	}
	return ""
}

// IsClassDate reports whether the DateFormat string falls on a scheduled day.
func (s Schedule) IsClassDate(date string) bool {
	d, err := time.Parse(DateFormat, date)
	if err != nil {
		return false
	}
	return s.isClassDay(d)
}

func (s Schedule) isClassDay(d time.Time) bool {
	if d.Before(s.TermStart) || d.After(s.TermEnd) {
		return false
	}
	if s.Holidays[d.Format(DateFormat)] {
		return false
	}
	for _, wd := range s.Weekdays {
		if d.Weekday() == wd {
			return true
		}
	}
	return false
}
