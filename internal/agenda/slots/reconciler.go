package slots

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"barberdesk/pkg/client"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/model"
	"barberdesk/pkg/session"
)

// SlotSource lists the persisted slots of a date.
type SlotSource interface {
	SlotsByDate(ctx context.Context, sess *session.Session, date time.Time) ([]*model.TimeSlot, error)
}

// Reconciler produces the authoritative slot list of a date.
type Reconciler struct {
	source    SlotSource
	generator *Generator
	log       *logger.Logger
}

func NewReconciler(source SlotSource, generator *Generator, log *logger.Logger) *Reconciler {
	return &Reconciler{source: source, generator: generator, log: log}
}

// Reconcile merges the persisted slots of date, or the generated template
// when nothing is persisted, with the bookings in appointments.
//
// Any retrieval failure other than "not found" is returned as is; the
// caller decides what to show.
func (r *Reconciler) Reconcile(ctx context.Context, sess *session.Session, date time.Time, appointments []*model.Appointment) ([]*model.TimeSlot, error) {
	day := model.StartOfDay(date.In(r.generator.Location()))

	persisted, err := r.source.SlotsByDate(ctx, sess, day)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		return nil, fmt.Errorf("fetch slots for %s: %w", day.Format(model.DateLayout), err)
	}

	base := r.onDay(day, persisted)
	if len(base) == 0 {
		r.log.Debug("No persisted slots, using template", "date", day.Format(model.DateLayout))
		base = r.generator.Generate(day)
	}

	return Merge(day, base, appointments), nil
}

// onDay keeps the slots whose instant falls on day.
func (r *Reconciler) onDay(day time.Time, in []*model.TimeSlot) []*model.TimeSlot {
	out := make([]*model.TimeSlot, 0, len(in))
	for _, s := range in {
		if !model.SameDay(s.Time, day, day.Location()) {
			r.log.Warn("Ignoring slot outside the requested date",
				"date", day.Format(model.DateLayout),
				"slot_id", s.ID,
				"slot_time", s.Time,
			)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Merge marks the slots of base that coincide with a non-cancelled
// appointment as booked and unavailable, stamps every slot with date and
// returns them sorted by instant. base is not modified.
func Merge(date time.Time, base []*model.TimeSlot, appointments []*model.Appointment) []*model.TimeSlot {
	day := model.StartOfDay(date)

	booked := make(map[int64]struct{}, len(appointments))
	for _, a := range appointments {
		if a == nil || a.IsCancelled() {
			continue
		}
		booked[instantKey(a.Time)] = struct{}{}
	}

	out := make([]*model.TimeSlot, 0, len(base))
	for _, s := range base {
		slot := s.Clone()
		_, slot.IsBooked = booked[instantKey(slot.Time)]
		if slot.IsBooked {
			slot.IsAvailable = false
		}
		slot.Date = day
		out = append(out, slot)
	}

	slices.SortStableFunc(out, func(a, b *model.TimeSlot) int {
		return a.Time.Compare(b.Time)
	})
	return out
}

// instantKey identifies t to the second. Sub-second parts sent by the API
// are ignored.
func instantKey(t time.Time) int64 {
	return t.UTC().Truncate(time.Second).Unix()
}
