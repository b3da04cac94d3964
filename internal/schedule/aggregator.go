package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

// Result is the output of one aggregation run
type Result struct {
	Date                     civil.Date          `json:"date"`
	Views                    []ScheduleView      `json:"views"`
	DueToday                 []DueDose           `json:"dueToday"`
	Missed                   []DueDose           `json:"missed"`
	MissedCount              int                 `json:"missedCount"`
	StatusCounts             map[Status]int      `json:"statusCounts"`
	LastTouchedDoseByPatient map[string]DayLabel `json:"lastTouchedDoseByPatient"`
}

// Engine derives schedules for a set of cases. It holds no state between runs.
type Engine struct {
	normalizer *Normalizer
	matchers   []Matcher
}

// NewEngine creates an engine reading stored timestamps in loc.
// Matchers default to DefaultMatchers.
func NewEngine(loc *time.Location, matchers ...Matcher) *Engine {
	return &Engine{
		normalizer: NewNormalizer(loc),
		matchers:   matchers,
	}
}

// Aggregate runs the default engine in UTC
func Aggregate(cases []BiteCase, patients []Patient, today civil.Date) Result {
	return NewEngine(time.UTC).Aggregate(cases, patients, today)
}

// BuildViews derives every case schedule with the default engine in UTC
func BuildViews(cases []BiteCase, patients []Patient, today civil.Date) []ScheduleView {
	return NewEngine(time.UTC).BuildViews(cases, patients, today)
}

// View derives the schedule of a single case
func (e *Engine) View(c BiteCase, patients []Patient, today civil.Date) ScheduleView {
	return e.view(c, NewResolver(patients, e.matchers...), today)
}

// BuildViews derives the schedule of every case in input order
func (e *Engine) BuildViews(cases []BiteCase, patients []Patient, today civil.Date) []ScheduleView {
	resolver := NewResolver(patients, e.matchers...)
	views := make([]ScheduleView, 0, len(cases))
	for _, c := range cases {
		views = append(views, e.view(c, resolver, today))
	}
	return views
}

func (e *Engine) view(c BiteCase, resolver *Resolver, today civil.Date) ScheduleView {
	return ScheduleView{
		CaseID:             c.ID,
		RegistrationNumber: c.RegistrationNumber,
		Slots:              ClassifySlots(e.normalizer.Normalize(c), today),
		Identity:           resolver.Resolve(c),
	}
}

// Aggregate combines the schedules of all cases. Fully completed cases add
// nothing to the due and missed views; slots without a date are never counted.
func (e *Engine) Aggregate(cases []BiteCase, patients []Patient, today civil.Date) Result {
	views := e.BuildViews(cases, patients, today)

	result := Result{
		Date:     today,
		Views:    views,
		DueToday: []DueDose{},
		Missed:   []DueDose{},
		StatusCounts: map[Status]int{
			StatusScheduled: 0,
			StatusToday:     0,
			StatusCompleted: 0,
			StatusMissed:    0,
		},
		LastTouchedDoseByPatient: map[string]DayLabel{},
	}

	type touched struct {
		day       DayLabel
		createdAt time.Time
	}
	latest := make(map[string]touched)

	for i, view := range views {
		if day, ok := LastPopulatedDay(view); ok {
			createdAt := parseTimestamp(cases[i].CreatedAt)
			if prev, seen := latest[view.Identity.Key]; !seen || !createdAt.Before(prev.createdAt) {
				latest[view.Identity.Key] = touched{day: day, createdAt: createdAt}
			}
		}

		if view.FullyCompleted() {
			continue
		}

		for _, slot := range view.Slots {
			if slot.Date == nil {
				continue
			}
			result.StatusCounts[slot.Status]++

			switch slot.Status {
			case StatusToday:
				result.DueToday = append(result.DueToday, dueDose(view, slot))
			case StatusMissed:
				result.Missed = append(result.Missed, dueDose(view, slot))
			}
		}
	}

	result.MissedCount = len(result.Missed)
	for key, t := range latest {
		result.LastTouchedDoseByPatient[key] = t.day
	}
	return result
}

// LastPopulatedDay scans from Day 28 back to Day 0 and returns the first slot
// that carries a date, regardless of its status.
func LastPopulatedDay(view ScheduleView) (DayLabel, bool) {
	for i := SlotCount - 1; i >= 0; i-- {
		if view.Slots[i].Date != nil {
			return view.Slots[i].Day, true
		}
	}
	return "", false
}

func dueDose(view ScheduleView, slot DoseSlot) DueDose {
	return DueDose{
		CaseID:             view.CaseID,
		RegistrationNumber: view.RegistrationNumber,
		Day:                slot.Day,
		Date:               *slot.Date,
		RawStatus:          slot.RawStatus,
		Status:             slot.Status,
		Identity:           view.Identity,
	}
}
