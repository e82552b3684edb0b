package model

import "time"

// LocalTimeLayout is the civil date-time layout the barbershop API uses for
// slot timestamps. It carries no offset.
const LocalTimeLayout = "2006-01-02T15:04:05"

// DateLayout is the calendar date layout used in paths and request bodies.
const DateLayout = "2006-01-02"

// TimeSlot is a single bookable instant on a calendar date.
//
// ID is positive once the slot is persisted by the barbershop API. Slots
// produced by the template generator carry SyntheticID(Time), which is
// negative. Zero means no identifier at all.
type TimeSlot struct {
	ID          int64     `json:"id"`
	Time        time.Time `json:"time"`
	IsAvailable bool      `json:"is_available"`
	Date        time.Time `json:"date"`
	IsBooked    bool      `json:"is_booked"`
}

func (s *TimeSlot) IsPersisted() bool {
	return s.ID > 0
}

// LocalTime renders the slot time as civil time in the slot date's location.
func (s *TimeSlot) LocalTime() string {
	return s.Time.In(s.Date.Location()).Format(LocalTimeLayout)
}

// Clone returns an independent copy of the slot.
func (s *TimeSlot) Clone() *TimeSlot {
	c := *s
	return &c
}

// SyntheticID derives the placeholder identifier of a not yet persisted slot.
func SyntheticID(t time.Time) int64 {
	return -t.UnixMilli()
}

// StartOfDay strips the clock from t, keeping its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same civil date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func CloneSlots(slots []*TimeSlot) []*TimeSlot {
	out := make([]*TimeSlot, len(slots))
	for i, s := range slots {
		out[i] = s.Clone()
	}
	return out
}
