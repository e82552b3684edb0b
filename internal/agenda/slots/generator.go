package slots

import (
	"time"

	"barberdesk/pkg/model"
)

// ClockTime is a civil time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Window is an opening period. Both bounds are inclusive.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// WeeklySchedule holds the opening windows of each weekday, indexed by
// time.Weekday. A day without windows is closed.
type WeeklySchedule [7][]Window

var (
	morning  = Window{Start: ClockTime{9, 0}, End: ClockTime{12, 0}}
	evening  = Window{Start: ClockTime{13, 0}, End: ClockTime{19, 30}}
	saturday = Window{Start: ClockTime{10, 0}, End: ClockTime{18, 0}}
)

// DefaultSchedule is the shop's opening hours.
var DefaultSchedule = WeeklySchedule{
	time.Sunday:    nil,
	time.Monday:    {morning, evening},
	time.Tuesday:   {morning, evening},
	time.Wednesday: {{Start: ClockTime{9, 0}, End: ClockTime{12, 30}}, evening},
	time.Thursday:  {morning, evening},
	time.Friday:    {morning, {Start: ClockTime{13, 0}, End: ClockTime{20, 0}}},
	time.Saturday:  {saturday},
}

const DefaultStep = 45 * time.Minute

// Generator builds the default slot template of a day.
type Generator struct {
	schedule WeeklySchedule
	loc      *time.Location
	step     time.Duration
}

func NewGenerator(schedule WeeklySchedule, loc *time.Location, step time.Duration) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if step <= 0 {
		step = DefaultStep
	}
	return &Generator{schedule: schedule, loc: loc, step: step}
}

func (g *Generator) Location() *time.Location {
	return g.loc
}

// Generate returns the template slots of date's civil day in the business
// location, in ascending order. Every slot is available and unbooked and
// carries a synthetic identifier.
func (g *Generator) Generate(date time.Time) []*model.TimeSlot {
	day := model.StartOfDay(date.In(g.loc))
	windows := g.schedule[day.Weekday()]

	out := make([]*model.TimeSlot, 0)
	for _, w := range windows {
		end := w.End.on(day)
		for t := w.Start.on(day); !t.After(end); {
			next := t.Add(g.step)
			if next.After(end) {
				if t.Equal(end) {
					out = append(out, newTemplateSlot(t, day))
				}
				break
			}
			out = append(out, newTemplateSlot(t, day))
			t = next
		}
	}
	return out
}

func newTemplateSlot(t, day time.Time) *model.TimeSlot {
	return &model.TimeSlot{
		ID:          model.SyntheticID(t),
		Time:        t,
		IsAvailable: true,
		Date:        day,
	}
}
