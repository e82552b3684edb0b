package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	agendaerrors "barberdesk/internal/agenda/errors"
	"barberdesk/internal/agenda/events"
	"barberdesk/internal/agenda/repository"
	"barberdesk/internal/agenda/slots"
	apperrors "barberdesk/pkg/errors"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/model"
	"barberdesk/pkg/sanitizer"
	"barberdesk/pkg/session"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BarbershopAPI is the part of the remote barbershop API the agenda uses.
type BarbershopAPI interface {
	slots.SlotSource
	CreateSlot(ctx context.Context, sess *session.Session, localTime string, available bool) error
	UpdateSlotAvailability(ctx context.Context, sess *session.Session, id int64, available bool) error
	Appointments(ctx context.Context, sess *session.Session) ([]*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, sess *session.Session, a *model.Appointment, status model.AppointmentStatus) error
	Services(ctx context.Context, sess *session.Session) ([]*model.Service, error)
	Products(ctx context.Context, sess *session.Session) ([]*model.Product, error)
	Users(ctx context.Context, sess *session.Session) ([]*model.User, error)
}

type AgendaService interface {
	Overview(ctx context.Context, sess *session.Session, includeHistory bool) (*Overview, error)
	SelectDate(ctx context.Context, sess *session.Session, date time.Time) (*DayView, error)
	CurrentSlots(ctx context.Context, sess *session.Session) (*DayView, error)
	ToggleSlot(ctx context.Context, sess *session.Session, slotTime time.Time) (*model.TimeSlot, error)
	SaveSlots(ctx context.Context, sess *session.Session) (*model.SaveReport, error)
	UpdateAppointmentStatus(ctx context.Context, sess *session.Session, id int64, status model.AppointmentStatus) (*model.Appointment, error)
	ListSaveReports(ctx context.Context, sess *session.Session, limit int, offset int64) ([]*model.SaveReport, int64, error)
	GetSaveReport(ctx context.Context, sess *session.Session, id string) (*model.SaveReport, error)
}

// DayView is the slot list of the selected date.
type DayView struct {
	Date  string            `json:"date"`
	Slots []*model.TimeSlot `json:"slots"`
}

// Overview is the initial dashboard load. A section that could not be
// fetched is listed in Errors and left empty.
type Overview struct {
	Date         string               `json:"date"`
	Slots        []*model.TimeSlot    `json:"slots"`
	Appointments []*model.Appointment `json:"appointments"`
	Services     []*model.Service     `json:"services"`
	Products     []*model.Product     `json:"products"`
	Clients      []*model.User        `json:"clients"`
	Staff        []*model.User        `json:"staff"`
	Errors       map[string]string    `json:"errors,omitempty"`
}

const (
	SectionAppointments = "appointments"
	SectionServices     = "services"
	SectionProducts     = "products"
	SectionUsers        = "users"
	SectionSlots        = "slots"
)

type Options struct {
	Location        *time.Location
	SaveConcurrency int
	Now             func() time.Time
}

type agendaService struct {
	api        BarbershopAPI
	reconciler *slots.Reconciler
	sessions   *SessionStore
	reports    repository.SaveReportRepository
	publisher  events.Publisher
	log        *logger.Logger

	loc         *time.Location
	concurrency int
	now         func() time.Time
}

func NewAgendaService(
	api BarbershopAPI,
	reconciler *slots.Reconciler,
	sessions *SessionStore,
	reports repository.SaveReportRepository,
	publisher events.Publisher,
	log *logger.Logger,
	opts Options,
) AgendaService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SaveConcurrency <= 0 {
		opts.SaveConcurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &agendaService{
		api:         api,
		reconciler:  reconciler,
		sessions:    sessions,
		reports:     reports,
		publisher:   publisher,
		log:         log,
		loc:         opts.Location,
		concurrency: opts.SaveConcurrency,
		now:         opts.Now,
	}
}

func (s *agendaService) today() time.Time {
	return model.StartOfDay(s.now().In(s.loc))
}

func (s *agendaService) Overview(ctx context.Context, sess *session.Session, includeHistory bool) (*Overview, error) {
	d := s.sessions.get(sess.Subject)

	var (
		appointments []*model.Appointment
		services     []*model.Service
		products     []*model.Product
		users        []*model.User
		errs         [4]error
	)

	var g errgroup.Group
	g.Go(func() error {
		appointments, errs[0] = s.api.Appointments(ctx, sess)
		return nil
	})
	g.Go(func() error {
		services, errs[1] = s.api.Services(ctx, sess)
		return nil
	})
	g.Go(func() error {
		products, errs[2] = s.api.Products(ctx, sess)
		return nil
	})
	g.Go(func() error {
		users, errs[3] = s.api.Users(ctx, sess)
		return nil
	})
	_ = g.Wait()

	out := &Overview{
		Slots:        []*model.TimeSlot{},
		Appointments: []*model.Appointment{},
		Services:     orEmpty(services),
		Products:     orEmpty(products),
		Clients:      []*model.User{},
		Staff:        []*model.User{},
		Errors:       map[string]string{},
	}
	for i, section := range []string{SectionAppointments, SectionServices, SectionProducts, SectionUsers} {
		if errs[i] != nil {
			s.log.Warn("Overview section could not be loaded",
				"section", section,
				"subject", sess.Subject,
				"error", errs[i],
			)
			out.Errors[section] = errs[i].Error()
		}
	}

	for _, u := range users {
		if phone := sanitizer.NormalizePhone(u.Phone); phone != "" {
			u.Phone = phone
		}
		switch {
		case u.IsClient():
			out.Clients = append(out.Clients, u)
		case u.IsStaff():
			out.Staff = append(out.Staff, u)
		}
	}

	d.mu.Lock()
	date := d.date
	if errs[0] == nil {
		d.appointments = appointments
		d.loaded = true
	}
	d.mu.Unlock()
	if date.IsZero() {
		date = s.today()
	}
	out.Date = date.Format(model.DateLayout)

	if errs[0] != nil {
		out.Errors[SectionSlots] = "appointments are required to mark booked slots"
	} else {
		out.Appointments = s.visibleAppointments(appointments, includeHistory)
		list, err := s.reconcile(ctx, sess, d, date, false)
		if err != nil {
			out.Errors[SectionSlots] = err.Error()
		} else {
			out.Slots = list
		}
	}

	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out, nil
}

// visibleAppointments hides appointments before yesterday unless
// includeHistory is set. The result is ordered by time.
func (s *agendaService) visibleAppointments(appts []*model.Appointment, includeHistory bool) []*model.Appointment {
	cutoff := s.today().AddDate(0, 0, -1)

	out := make([]*model.Appointment, 0, len(appts))
	for _, a := range appts {
		if !includeHistory && a.Time.Before(cutoff) {
			continue
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b *model.Appointment) int {
		return a.Time.Compare(b.Time)
	})
	return out
}

func (s *agendaService) SelectDate(ctx context.Context, sess *session.Session, date time.Time) (*DayView, error) {
	d := s.sessions.get(sess.Subject)
	day := model.StartOfDay(date.In(s.loc))

	list, err := s.reconcile(ctx, sess, d, day, false)
	if err != nil {
		return nil, err
	}
	return &DayView{Date: day.Format(model.DateLayout), Slots: list}, nil
}

func (s *agendaService) CurrentSlots(ctx context.Context, sess *session.Session) (*DayView, error) {
	d := s.sessions.get(sess.Subject)

	d.mu.Lock()
	selected := d.date
	date := d.slotsDate
	list := model.CloneSlots(d.slots)
	d.mu.Unlock()

	if selected.IsZero() {
		return s.SelectDate(ctx, sess, s.today())
	}
	// The first list of the session is still loading.
	if date.IsZero() {
		return &DayView{Date: selected.Format(model.DateLayout), Slots: []*model.TimeSlot{}}, nil
	}
	return &DayView{Date: date.Format(model.DateLayout), Slots: list}, nil
}

// reconcile rebuilds the slot list of day and stores it on the dashboard
// when no newer reconciliation was started meanwhile. With onlyIfSelected
// nothing happens unless day is still the selected date and no other
// reconciliation of it is running.
func (s *agendaService) reconcile(ctx context.Context, sess *session.Session, d *dashboard, day time.Time, onlyIfSelected bool) ([]*model.TimeSlot, error) {
	d.mu.Lock()
	if onlyIfSelected && (!d.date.Equal(day) || d.pending()) {
		d.mu.Unlock()
		return nil, nil
	}
	gen := d.begin(day)
	appts := d.appointments
	loaded := d.loaded
	d.mu.Unlock()

	if !loaded {
		fetched, err := s.api.Appointments(ctx, sess)
		if err != nil {
			return nil, s.failReconcile(d, gen, day, sess, fmt.Errorf("fetch appointments: %w", err))
		}
		appts = fetched

		d.mu.Lock()
		if !d.loaded {
			d.appointments = fetched
			d.loaded = true
		}
		d.mu.Unlock()
	}

	list, err := s.reconciler.Reconcile(ctx, sess, day, appts)
	if err != nil {
		return nil, s.failReconcile(d, gen, day, sess, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.current(gen, day) {
		s.log.Debug("Discarding superseded slot list",
			"subject", sess.Subject,
			"date", day.Format(model.DateLayout),
		)
		return nil, superseded()
	}
	d.settle(gen, day, list)
	return model.CloneSlots(list), nil
}

// failReconcile clears the list of the current reconciliation and maps err
// for the caller.
func (s *agendaService) failReconcile(d *dashboard, gen uint64, day time.Time, sess *session.Session, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.current(gen, day) {
		return superseded()
	}
	d.settle(gen, day, nil)

	s.log.Warn("Could not load slots",
		"subject", sess.Subject,
		"date", day.Format(model.DateLayout),
		"error", err,
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("Loading slots timed out")
	}
	return apperrors.Upstream("Could not load slots for "+day.Format(model.DateLayout), err)
}

func superseded() error {
	return apperrors.Wrap(agendaerrors.ErrSuperseded, apperrors.CodeConflict, "Superseded by a newer request", http.StatusConflict)
}

func reloading() error {
	return apperrors.Wrap(agendaerrors.ErrReloading, apperrors.CodeConflict, "The slot list is being reloaded, try again", http.StatusConflict)
}

func (s *agendaService) ToggleSlot(ctx context.Context, sess *session.Session, slotTime time.Time) (*model.TimeSlot, error) {
	d := s.sessions.get(sess.Subject)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending() {
		return nil, reloading()
	}
	for _, slot := range d.slots {
		if !slot.Time.Equal(slotTime) {
			continue
		}
		if slot.IsBooked {
			return nil, apperrors.Wrap(agendaerrors.ErrSlotBooked, apperrors.CodeConflict, "Booked slots cannot be toggled", http.StatusConflict)
		}
		slot.IsAvailable = !slot.IsAvailable
		return slot.Clone(), nil
	}

	return nil, apperrors.NotFoundWithID("Slot", slotTime.In(s.loc).Format(model.LocalTimeLayout))
}

// SaveSlots pushes every slot of the current list to the barbershop API.
// The calls run concurrently and are not rolled back; the returned report
// lists the outcome of each one.
func (s *agendaService) SaveSlots(ctx context.Context, sess *session.Session) (*model.SaveReport, error) {
	d := s.sessions.get(sess.Subject)

	d.mu.Lock()
	busy := d.pending()
	day := d.slotsDate
	snapshot := model.CloneSlots(d.slots)
	d.mu.Unlock()

	if busy {
		return nil, reloading()
	}
	if day.IsZero() {
		return nil, apperrors.Wrap(agendaerrors.ErrNoDateSelected, apperrors.CodeInvalidInput, "Select a date before saving", http.StatusBadRequest)
	}

	report := &model.SaveReport{
		ID:        uuid.NewString(),
		Subject:   sess.Subject,
		Date:      day.Format(model.DateLayout),
		Outcomes:  s.push(ctx, sess, snapshot),
		CreatedAt: s.now().UTC(),
	}
	for _, o := range report.Outcomes {
		if o.Succeeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	s.log.Info("Slots saved",
		"subject", sess.Subject,
		"date", report.Date,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)

	if err := s.reports.Create(ctx, report); err != nil {
		s.log.Error("Failed to store save report", "report_id", report.ID, "error", err)
	}
	if err := s.publisher.SlotsSaved(ctx, report); err != nil {
		s.log.Error("Failed to publish slots saved event", "report_id", report.ID, "error", err)
	}

	if report.Succeeded > 0 {
		if _, err := s.reconcile(ctx, sess, d, day, true); err != nil {
			s.log.Warn("Reload after save failed", "subject", sess.Subject, "date", report.Date, "error", err)
		}
	}

	if !report.OK() {
		return report, apperrors.SavePartialFailure(report.Failed, len(report.Outcomes), map[string]any{
			"report_id":  report.ID,
			"failed_ids": report.FailedIDs(),
			"outcomes":   report.Outcomes,
		})
	}
	return report, nil
}

// push issues one call per slot with at most s.concurrency in flight.
func (s *agendaService) push(ctx context.Context, sess *session.Session, list []*model.TimeSlot) []model.SlotOutcome {
	outcomes := make([]model.SlotOutcome, len(list))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, slot := range list {
		g.Go(func() error {
			outcomes[i] = s.pushOne(ctx, sess, slot)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *agendaService) pushOne(ctx context.Context, sess *session.Session, slot *model.TimeSlot) model.SlotOutcome {
	out := model.SlotOutcome{
		SlotID:      slot.ID,
		LocalTime:   slot.LocalTime(),
		IsAvailable: slot.IsAvailable,
	}

	var err error
	if slot.IsPersisted() {
		out.Action = model.SaveActionUpdate
		err = s.api.UpdateSlotAvailability(ctx, sess, slot.ID, slot.IsAvailable)
	} else {
		out.Action = model.SaveActionCreate
		err = s.api.CreateSlot(ctx, sess, out.LocalTime, slot.IsAvailable)
	}

	if err != nil {
		s.log.Warn("Slot save call failed",
			"action", out.Action,
			"slot_id", slot.ID,
			"local_time", out.LocalTime,
			"error", err,
		)
		out.Error = err.Error()
		return out
	}
	out.Succeeded = true
	return out
}

func (s *agendaService) UpdateAppointmentStatus(ctx context.Context, sess *session.Session, id int64, status model.AppointmentStatus) (*model.Appointment, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Appointment ID must be positive")
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown appointment status %q", status))
	}

	d := s.sessions.get(sess.Subject)
	appt, err := s.findAppointment(ctx, sess, d, id)
	if err != nil {
		return nil, err
	}

	from := appt.Status
	if !from.CanTransitionTo(status) {
		return nil, apperrors.Wrap(agendaerrors.ErrInvalidTransition, apperrors.CodeConflict,
			fmt.Sprintf("Appointment cannot change from %s to %s", from, status), http.StatusConflict)
	}

	if err := s.api.UpdateAppointmentStatus(ctx, sess, appt, status); err != nil {
		s.log.Error("Failed to update appointment status",
			"appointment_id", id,
			"status", status,
			"error", err,
		)
		return nil, apperrors.Upstream("Could not update appointment", err)
	}

	updated := *appt
	updated.Status = status

	fresh, err := s.api.Appointments(ctx, sess)
	d.mu.Lock()
	if err != nil {
		s.log.Warn("Appointment refetch failed, keeping local copy", "appointment_id", id, "error", err)
		d.appointments = replaceAppointment(d.appointments, &updated)
	} else {
		d.appointments = fresh
		d.loaded = true
		if a := findByID(fresh, id); a != nil {
			updated = *a
		}
	}
	selected := d.date
	d.mu.Unlock()

	s.log.Info("Appointment status updated",
		"appointment_id", id,
		"from", from,
		"to", updated.Status,
		"subject", sess.Subject,
	)

	if err := s.publisher.AppointmentStatusChanged(ctx, sess.Subject, &updated, from); err != nil {
		s.log.Error("Failed to publish appointment status event", "appointment_id", id, "error", err)
	}

	if !selected.IsZero() && model.SameDay(updated.Time, selected, s.loc) {
		if _, err := s.reconcile(ctx, sess, d, selected, true); err != nil {
			s.log.Warn("Reload after status change failed", "subject", sess.Subject, "error", err)
		}
	}

	return &updated, nil
}

func (s *agendaService) findAppointment(ctx context.Context, sess *session.Session, d *dashboard, id int64) (*model.Appointment, error) {
	d.mu.Lock()
	appt := findByID(d.appointments, id)
	d.mu.Unlock()
	if appt != nil {
		return appt, nil
	}

	fresh, err := s.api.Appointments(ctx, sess)
	if err != nil {
		return nil, apperrors.Upstream("Could not load appointments", err)
	}

	d.mu.Lock()
	d.appointments = fresh
	d.loaded = true
	d.mu.Unlock()

	if appt = findByID(fresh, id); appt == nil {
		return nil, apperrors.Wrap(agendaerrors.ErrAppointmentNotFound, apperrors.CodeNotFound, "Appointment not found", http.StatusNotFound).
			WithDetails(map[string]any{"id": id})
	}
	return appt, nil
}

func findByID(appts []*model.Appointment, id int64) *model.Appointment {
	for _, a := range appts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func replaceAppointment(appts []*model.Appointment, updated *model.Appointment) []*model.Appointment {
	out := make([]*model.Appointment, len(appts))
	for i, a := range appts {
		if a.ID == updated.ID {
			out[i] = updated
			continue
		}
		out[i] = a
	}
	return out
}

func (s *agendaService) ListSaveReports(ctx context.Context, sess *session.Session, limit int, offset int64) ([]*model.SaveReport, int64, error) {
	var (
		reports []*model.SaveReport
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reports.FindBySubject(gctx, sess.Subject, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.reports.CountBySubject(gctx, sess.Subject)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Failed to list save reports", "subject", sess.Subject, "error", err)
		return nil, 0, apperrors.Internal("Failed to list save reports", err)
	}

	return reports, total, nil
}

func (s *agendaService) GetSaveReport(ctx context.Context, sess *session.Session, id string) (*model.SaveReport, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Save report ID cannot be empty")
	}

	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, agendaerrors.ErrReportNotFound) {
			return nil, apperrors.NotFoundWithID("Save report", id)
		}
		s.log.Error("Failed to get save report", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to get save report", err)
	}
	if report.Subject != sess.Subject {
		return nil, apperrors.NotFoundWithID("Save report", id)
	}
	return report, nil
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
