package slots

import (
	"testing"
	"time"

	"barberdesk/pkg/model"
)

var brt = time.FixedZone("BRT", -3*3600)

func clocks(slots []*model.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time.In(brt).Format("15:04")
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerator_Generate(t *testing.T) {
	weekdayEvening := []string{"13:00", "13:45", "14:30", "15:15", "16:00", "16:45", "17:30", "18:15"}

	tests := []struct {
		name string
		date time.Time
		want []string
	}{
		{
			name: "sunday is closed",
			date: time.Date(2024, 3, 3, 0, 0, 0, 0, brt),
			want: []string{},
		},
		{
			name: "monday",
			date: time.Date(2024, 3, 4, 0, 0, 0, 0, brt),
			want: append([]string{"09:00", "09:45", "10:30", "11:15", "12:00"}, weekdayEvening...),
		},
		{
			name: "tuesday",
			date: time.Date(2024, 3, 5, 0, 0, 0, 0, brt),
			want: append([]string{"09:00", "09:45", "10:30", "11:15", "12:00"}, weekdayEvening...),
		},
		{
			name: "wednesday morning ends before the half-hour boundary",
			date: time.Date(2024, 3, 6, 0, 0, 0, 0, brt),
			want: append([]string{"09:00", "09:45", "10:30", "11:15"}, weekdayEvening...),
		},
		{
			name: "thursday",
			date: time.Date(2024, 3, 7, 0, 0, 0, 0, brt),
			want: append([]string{"09:00", "09:45", "10:30", "11:15", "12:00"}, weekdayEvening...),
		},
		{
			name: "friday runs until 20:00",
			date: time.Date(2024, 3, 8, 0, 0, 0, 0, brt),
			want: append([]string{"09:00", "09:45", "10:30", "11:15", "12:00"}, append(weekdayEvening, "19:00")...),
		},
		{
			name: "saturday has no lunch break",
			date: time.Date(2024, 3, 9, 0, 0, 0, 0, brt),
			want: []string{"10:00", "10:45", "11:30", "12:15", "13:00", "13:45", "14:30", "15:15", "16:00", "16:45"},
		},
	}

	g := NewGenerator(DefaultSchedule, brt, 45*time.Minute)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Generate(tt.date)
			if !equalStrings(clocks(got), tt.want) {
				t.Errorf("Generate() = %v, want %v", clocks(got), tt.want)
			}
		})
	}
}

func TestGenerator_SlotFields(t *testing.T) {
	g := NewGenerator(DefaultSchedule, brt, 45*time.Minute)
	date := time.Date(2024, 3, 6, 15, 20, 0, 0, brt)

	got := g.Generate(date)
	if len(got) == 0 {
		t.Fatal("expected slots for a wednesday")
	}

	midnight := time.Date(2024, 3, 6, 0, 0, 0, 0, brt)
	for _, s := range got {
		if s.ID != -s.Time.UnixMilli() {
			t.Errorf("slot %v: expected synthetic id %d, got %d", s.Time, -s.Time.UnixMilli(), s.ID)
		}
		if !s.IsAvailable || s.IsBooked {
			t.Errorf("slot %v: template slots must be available and unbooked", s.Time)
		}
		if !s.Date.Equal(midnight) {
			t.Errorf("slot %v: expected date %v, got %v", s.Time, midnight, s.Date)
		}
		if !model.SameDay(s.Time, midnight, brt) {
			t.Errorf("slot %v is not on the requested date", s.Time)
		}
	}
}

func TestGenerator_UsesBusinessLocation(t *testing.T) {
	g := NewGenerator(DefaultSchedule, brt, 45*time.Minute)

	// 01:00 UTC on Thursday is still Wednesday evening in BRT.
	got := g.Generate(time.Date(2024, 3, 7, 1, 0, 0, 0, time.UTC))
	if len(got) != 12 {
		t.Fatalf("expected the 12 wednesday slots, got %d", len(got))
	}
	if got[0].Time.Weekday() != time.Wednesday {
		t.Errorf("expected wednesday slots, got %v", got[0].Time.Weekday())
	}
}

func TestGenerator_ExactBoundaryIsIncluded(t *testing.T) {
	schedule := WeeklySchedule{}
	schedule[time.Monday] = []Window{{Start: ClockTime{9, 0}, End: ClockTime{10, 30}}}
	g := NewGenerator(schedule, brt, 45*time.Minute)

	got := clocks(g.Generate(time.Date(2024, 3, 4, 0, 0, 0, 0, brt)))
	want := []string{"09:00", "09:45", "10:30"}
	if !equalStrings(got, want) {
		t.Errorf("Generate() = %v, want %v", got, want)
	}
}

func TestGenerator_IsDeterministic(t *testing.T) {
	g := NewGenerator(DefaultSchedule, brt, 45*time.Minute)
	date := time.Date(2024, 3, 8, 0, 0, 0, 0, brt)

	a, b := g.Generate(date), g.Generate(date)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Time.Equal(b[i].Time) {
			t.Errorf("slot %d differs between runs", i)
		}
	}
}
