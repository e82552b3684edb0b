package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	agendaerrors "barberdesk/internal/agenda/errors"
	"barberdesk/internal/agenda/events"
	"barberdesk/internal/agenda/slots"
	"barberdesk/pkg/client"
	apperrors "barberdesk/pkg/errors"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/model"
	"barberdesk/pkg/session"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockAPI struct {
	slotsByDateFunc             func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error)
	createSlotFunc              func(ctx context.Context, localTime string, available bool) error
	updateSlotAvailabilityFunc  func(ctx context.Context, id int64, available bool) error
	appointmentsFunc            func(ctx context.Context) ([]*model.Appointment, error)
	updateAppointmentStatusFunc func(ctx context.Context, a *model.Appointment, status model.AppointmentStatus) error
	servicesFunc                func(ctx context.Context) ([]*model.Service, error)
	productsFunc                func(ctx context.Context) ([]*model.Product, error)
	usersFunc                   func(ctx context.Context) ([]*model.User, error)

	slotsCalls atomic.Int32
}

func (m *mockAPI) SlotsByDate(ctx context.Context, sess *session.Session, date time.Time) ([]*model.TimeSlot, error) {
	m.slotsCalls.Add(1)
	if m.slotsByDateFunc != nil {
		return m.slotsByDateFunc(ctx, date)
	}
	return nil, client.ErrNotFound
}

func (m *mockAPI) CreateSlot(ctx context.Context, sess *session.Session, localTime string, available bool) error {
	if m.createSlotFunc != nil {
		return m.createSlotFunc(ctx, localTime, available)
	}
	return nil
}

func (m *mockAPI) UpdateSlotAvailability(ctx context.Context, sess *session.Session, id int64, available bool) error {
	if m.updateSlotAvailabilityFunc != nil {
		return m.updateSlotAvailabilityFunc(ctx, id, available)
	}
	return nil
}

func (m *mockAPI) Appointments(ctx context.Context, sess *session.Session) ([]*model.Appointment, error) {
	if m.appointmentsFunc != nil {
		return m.appointmentsFunc(ctx)
	}
	return []*model.Appointment{}, nil
}

func (m *mockAPI) UpdateAppointmentStatus(ctx context.Context, sess *session.Session, a *model.Appointment, status model.AppointmentStatus) error {
	if m.updateAppointmentStatusFunc != nil {
		return m.updateAppointmentStatusFunc(ctx, a, status)
	}
	return nil
}

func (m *mockAPI) Services(ctx context.Context, sess *session.Session) ([]*model.Service, error) {
	if m.servicesFunc != nil {
		return m.servicesFunc(ctx)
	}
	return []*model.Service{}, nil
}

func (m *mockAPI) Products(ctx context.Context, sess *session.Session) ([]*model.Product, error) {
	if m.productsFunc != nil {
		return m.productsFunc(ctx)
	}
	return []*model.Product{}, nil
}

func (m *mockAPI) Users(ctx context.Context, sess *session.Session) ([]*model.User, error) {
	if m.usersFunc != nil {
		return m.usersFunc(ctx)
	}
	return []*model.User{}, nil
}

type mockReports struct {
	mu      sync.Mutex
	created []*model.SaveReport
}

func (m *mockReports) Create(ctx context.Context, report *model.SaveReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, report)
	return nil
}

func (m *mockReports) FindByID(ctx context.Context, id string) (*model.SaveReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, agendaerrors.ErrReportNotFound
}

func (m *mockReports) FindBySubject(ctx context.Context, subject string, limit int, offset int64) ([]*model.SaveReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SaveReport
	for _, r := range m.created {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReports) CountBySubject(ctx context.Context, subject string) (int64, error) {
	list, _ := m.FindBySubject(ctx, subject, 0, 0)
	return int64(len(list)), nil
}

type mockPublisher struct {
	events.NopPublisher
	mu           sync.Mutex
	saved        []*model.SaveReport
	statusEvents []model.AppointmentStatus
}

func (m *mockPublisher) SlotsSaved(ctx context.Context, report *model.SaveReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, report)
	return nil
}

func (m *mockPublisher) AppointmentStatusChanged(ctx context.Context, subject string, appt *model.Appointment, from model.AppointmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusEvents = append(m.statusEvents, appt.Status)
	return nil
}

// ────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────

var brt = time.FixedZone("BRT", -3*3600)

// Wednesday 2024-03-06 10:00 in the business zone.
var fixedNow = time.Date(2024, 3, 6, 10, 0, 0, 0, brt)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, brt)
}

type fixture struct {
	svc       AgendaService
	api       *mockAPI
	reports   *mockReports
	publisher *mockPublisher
	sessions  *SessionStore
}

func newFixture(t *testing.T, api *mockAPI, concurrency int) *fixture {
	t.Helper()
	log := logger.Discard()
	sessions := NewSessionStore(time.Hour, log)
	t.Cleanup(sessions.Stop)

	reconciler := slots.NewReconciler(api, slots.NewGenerator(slots.DefaultSchedule, brt, 45*time.Minute), log)
	reports := &mockReports{}
	publisher := &mockPublisher{}

	svc := NewAgendaService(api, reconciler, sessions, reports, publisher, log, Options{
		Location:        brt,
		SaveConcurrency: concurrency,
		Now:             func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, api: api, reports: reports, publisher: publisher, sessions: sessions}
}

func operator() *session.Session {
	return &session.Session{Subject: "7", Token: "tok", IsAdmin: true}
}

// ────────────────────────────────────────────────
// Date selection and reconciliation
// ────────────────────────────────────────────────

func TestSelectDate_ReconcilesWithAppointments(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			return []*model.TimeSlot{
				{ID: 5, Time: at(wednesday, 14, 15), IsAvailable: true},
				{ID: 4, Time: at(wednesday, 9, 0), IsAvailable: true},
			}, nil
		},
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return []*model.Appointment{{ID: 1, Time: at(wednesday, 14, 15), Status: model.StatusPending}}, nil
		},
	}
	f := newFixture(t, api, 4)

	view, err := f.svc.SelectDate(context.Background(), operator(), wednesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Date != "2024-03-06" || len(view.Slots) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Slots[0].ID != 4 || !view.Slots[1].IsBooked || view.Slots[1].IsAvailable {
		t.Errorf("unexpected slots %+v %+v", view.Slots[0], view.Slots[1])
	}
}

func TestCurrentSlots_DefaultsToToday(t *testing.T) {
	f := newFixture(t, &mockAPI{}, 4)

	view, err := f.svc.CurrentSlots(context.Background(), operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Date != "2024-03-06" {
		t.Errorf("expected today, got %s", view.Date)
	}
	if len(view.Slots) != 12 {
		t.Errorf("expected the 12 wednesday template slots, got %d", len(view.Slots))
	}
}

func TestSelectDate_ErrorClearsList(t *testing.T) {
	fail := false
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			if fail {
				return nil, errors.New("connection reset")
			}
			return nil, client.ErrNotFound
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), fixedNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fail = true
	_, err := f.svc.SelectDate(ctx, operator(), fixedNow)
	if !apperrors.HasCode(err, apperrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	view, err := f.svc.CurrentSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Slots) != 0 {
		t.Errorf("list should be cleared after a failed load, got %d slots", len(view.Slots))
	}
}

func TestSelectDate_StaleResultIsDiscarded(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, brt)
	tuesday := time.Date(2024, 3, 5, 0, 0, 0, 0, brt)

	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			if date.Equal(monday) {
				close(started)
				<-release
			}
			return nil, client.ErrNotFound
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	slowErr := make(chan error, 1)
	go func() {
		_, err := f.svc.SelectDate(ctx, operator(), monday)
		slowErr <- err
	}()
	<-started

	view, err := f.svc.SelectDate(ctx, operator(), tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)

	err = <-slowErr
	if !errors.Is(err, agendaerrors.ErrSuperseded) || !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected superseded conflict, got %v", err)
	}

	current, err := f.svc.CurrentSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.Date != "2024-03-05" || len(current.Slots) != len(view.Slots) {
		t.Errorf("stale result overwrote the newer list: %s with %d slots", current.Date, len(current.Slots))
	}
}

func TestSelectDate_PreviousListStaysConsistentWhileLoading(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	thursday := wednesday.AddDate(0, 0, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var creates atomic.Int32
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			if date.Equal(thursday) {
				close(started)
				<-release
			}
			return nil, client.ErrNotFound
		},
		createSlotFunc: func(ctx context.Context, localTime string, available bool) error {
			creates.Add(1)
			return nil
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loadErr := make(chan error, 1)
	go func() {
		_, err := f.svc.SelectDate(ctx, operator(), thursday)
		loadErr <- err
	}()
	<-started

	view, err := f.svc.CurrentSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Date != "2024-03-06" {
		t.Errorf("expected the wednesday list while thursday loads, got %s", view.Date)
	}
	for _, slot := range view.Slots {
		if !model.SameDay(slot.Time, wednesday, brt) {
			t.Errorf("slot %s does not belong to %s", slot.LocalTime(), view.Date)
		}
	}

	_, err = f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 0))
	if !errors.Is(err, agendaerrors.ErrReloading) || !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("expected reloading conflict on toggle, got %v", err)
	}
	_, err = f.svc.SaveSlots(ctx, operator())
	if !errors.Is(err, agendaerrors.ErrReloading) {
		t.Errorf("expected reloading conflict on save, got %v", err)
	}
	if creates.Load() != 0 {
		t.Errorf("no slot should be pushed while a reload is pending, got %d calls", creates.Load())
	}

	close(release)
	if err := <-loadErr; err != nil {
		t.Fatalf("thursday load should not be superseded: %v", err)
	}

	view, err = f.svc.CurrentSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Date != "2024-03-07" || len(view.Slots) != 13 {
		t.Errorf("expected the 13 thursday slots, got %s with %d", view.Date, len(view.Slots))
	}
	if _, err := f.svc.ToggleSlot(ctx, operator(), at(thursday, 9, 0)); err != nil {
		t.Errorf("toggle should work once loaded: %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, &mockAPI{}, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), time.Date(2024, 3, 9, 0, 0, 0, 0, brt)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := &session.Session{Subject: "8", IsAdmin: true}
	view, err := f.svc.CurrentSlots(ctx, other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Date != "2024-03-06" {
		t.Errorf("second operator should start on today, got %s", view.Date)
	}
}

// ────────────────────────────────────────────────
// Toggle
// ────────────────────────────────────────────────

func TestToggleSlot(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	api := &mockAPI{
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return []*model.Appointment{{ID: 1, Time: at(wednesday, 9, 45), Status: model.StatusPending}}, nil
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slot, err := f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.IsAvailable {
		t.Errorf("toggle should make the slot unavailable")
	}

	slot, err = f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 0))
	if err != nil || !slot.IsAvailable {
		t.Errorf("second toggle should restore availability, got %+v (%v)", slot, err)
	}

	_, err = f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 45))
	if !errors.Is(err, agendaerrors.ErrSlotBooked) {
		t.Errorf("expected booked slot error, got %v", err)
	}

	_, err = f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 10))
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if f.api.slotsCalls.Load() != 1 {
		t.Errorf("toggle must not call the remote API")
	}
}

// ────────────────────────────────────────────────
// Save
// ────────────────────────────────────────────────

func TestSaveSlots_RoutesCallsByIdentifier(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)

	var (
		mu      sync.Mutex
		updates = map[int64]bool{}
		creates = map[string]bool{}
	)
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			return []*model.TimeSlot{
				{ID: 4, Time: at(wednesday, 9, 0), IsAvailable: true},
				{ID: 0, Time: at(wednesday, 9, 45), IsAvailable: true},
				{ID: model.SyntheticID(at(wednesday, 10, 30)), Time: at(wednesday, 10, 30), IsAvailable: false},
			}, nil
		},
		updateSlotAvailabilityFunc: func(ctx context.Context, id int64, available bool) error {
			mu.Lock()
			defer mu.Unlock()
			updates[id] = available
			return nil
		},
		createSlotFunc: func(ctx context.Context, localTime string, available bool) error {
			mu.Lock()
			defer mu.Unlock()
			creates[localTime] = available
			return nil
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := f.svc.SaveSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.OK() || report.Succeeded != 3 {
		t.Errorf("unexpected report %+v", report)
	}

	if len(updates) != 1 || updates[4] != false {
		t.Errorf("expected a single update of slot 4 to unavailable, got %v", updates)
	}
	if len(creates) != 2 || creates["2024-03-06T09:45:00"] != true || creates["2024-03-06T10:30:00"] != false {
		t.Errorf("unexpected creates %v", creates)
	}

	if f.api.slotsCalls.Load() != 2 {
		t.Errorf("expected a reload after saving, got %d slot fetches", f.api.slotsCalls.Load())
	}
	if len(f.reports.created) != 1 || len(f.publisher.saved) != 1 {
		t.Errorf("report should be stored and published")
	}
}

func TestSaveSlots_PartialFailure(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			return []*model.TimeSlot{
				{ID: 4, Time: at(wednesday, 9, 0), IsAvailable: true},
				{ID: 9, Time: at(wednesday, 9, 45), IsAvailable: true},
			}, nil
		},
		updateSlotAvailabilityFunc: func(ctx context.Context, id int64, available bool) error {
			if id == 9 {
				return errors.New("status 500")
			}
			return nil
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := f.svc.SaveSlots(ctx, operator())
	if !apperrors.HasCode(err, apperrors.CodeSavePartialFailure) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if report == nil || report.Failed != 1 || report.Succeeded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if ids := report.FailedIDs(); len(ids) != 1 || ids[0] != 9 {
		t.Errorf("unexpected failed ids %v", ids)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Details["report_id"] != report.ID {
		t.Errorf("error should reference the report, got %v", appErr.Details)
	}
	if f.api.slotsCalls.Load() != 2 {
		t.Errorf("a partially successful save should reload the list")
	}
}

func TestSaveSlots_TotalFailureKeepsLocalEdits(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	api := &mockAPI{
		slotsByDateFunc: func(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
			return []*model.TimeSlot{{ID: 4, Time: at(wednesday, 9, 0), IsAvailable: true}}, nil
		},
		updateSlotAvailabilityFunc: func(ctx context.Context, id int64, available bool) error {
			return errors.New("status 503")
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.ToggleSlot(ctx, operator(), at(wednesday, 9, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.SaveSlots(ctx, operator()); err == nil {
		t.Fatal("expected an error")
	}

	view, _ := f.svc.CurrentSlots(ctx, operator())
	if view.Slots[0].IsAvailable {
		t.Errorf("local toggle should survive a failed save")
	}
	if f.api.slotsCalls.Load() != 1 {
		t.Errorf("a failed save must not reload the list")
	}
}

func TestSaveSlots_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	api := &mockAPI{
		createSlotFunc: func(ctx context.Context, localTime string, available bool) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return nil
		},
	}
	f := newFixture(t, api, 2)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), fixedNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := f.svc.SaveSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Outcomes) != 12 {
		t.Errorf("expected 12 outcomes, got %d", len(report.Outcomes))
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 calls in flight, saw %d", peak.Load())
	}
}

func TestSaveSlots_RequiresSelectedDate(t *testing.T) {
	f := newFixture(t, &mockAPI{}, 4)

	_, err := f.svc.SaveSlots(context.Background(), operator())
	if !errors.Is(err, agendaerrors.ErrNoDateSelected) {
		t.Errorf("expected ErrNoDateSelected, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Overview
// ────────────────────────────────────────────────

func TestOverview(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	api := &mockAPI{
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{ID: 1, Time: at(wednesday, 9, 0), Status: model.StatusPending},
				{ID: 2, Time: at(wednesday.AddDate(0, 0, -1), 15, 0), Status: model.StatusCompleted},
				{ID: 3, Time: at(wednesday.AddDate(0, 0, -10), 9, 0), Status: model.StatusCompleted},
			}, nil
		},
		productsFunc: func(ctx context.Context) ([]*model.Product, error) {
			return nil, errors.New("status 500")
		},
		usersFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: 1, Name: "Ana", Phone: "(11) 98765-4321", Type: model.UserTypeClient},
				{ID: 2, Name: "Caio", Type: model.UserTypeAdmin},
			}, nil
		},
	}
	f := newFixture(t, api, 4)

	ov, err := f.svc.Overview(context.Background(), operator(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ov.Date != "2024-03-06" || len(ov.Slots) != 12 || !ov.Slots[0].IsBooked {
		t.Errorf("expected reconciled wednesday slots with 09:00 booked, got %d slots", len(ov.Slots))
	}
	if len(ov.Appointments) != 2 || ov.Appointments[0].ID != 2 {
		t.Errorf("expected appointments from yesterday on, oldest first, got %+v", ov.Appointments)
	}
	if _, ok := ov.Errors[SectionProducts]; !ok || len(ov.Errors) != 1 {
		t.Errorf("expected only the products section to fail, got %v", ov.Errors)
	}
	if len(ov.Clients) != 1 || len(ov.Staff) != 1 {
		t.Fatalf("expected 1 client and 1 staff member, got %d/%d", len(ov.Clients), len(ov.Staff))
	}
	if ov.Clients[0].Phone != "+5511987654321" {
		t.Errorf("phone should be normalized, got %s", ov.Clients[0].Phone)
	}

	withHistory, _ := f.svc.Overview(context.Background(), operator(), true)
	if len(withHistory.Appointments) != 3 {
		t.Errorf("history should list every appointment, got %d", len(withHistory.Appointments))
	}
}

func TestOverview_AppointmentsFailure(t *testing.T) {
	api := &mockAPI{
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return nil, errors.New("status 502")
		},
	}
	f := newFixture(t, api, 4)

	ov, err := f.svc.Overview(context.Background(), operator(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ov.Errors[SectionAppointments]; !ok {
		t.Errorf("expected appointments error, got %v", ov.Errors)
	}
	if _, ok := ov.Errors[SectionSlots]; !ok || len(ov.Slots) != 0 {
		t.Errorf("slots cannot be shown without appointments, got %v", ov.Errors)
	}
	if f.api.slotsCalls.Load() != 0 {
		t.Errorf("slots should not be fetched")
	}
}

// ────────────────────────────────────────────────
// Appointment status
// ────────────────────────────────────────────────

func TestUpdateAppointmentStatus(t *testing.T) {
	wednesday := at(fixedNow, 0, 0)
	status := model.StatusPending
	api := &mockAPI{
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return []*model.Appointment{{ID: 1, Time: at(wednesday, 9, 0), Status: status}}, nil
		},
		updateAppointmentStatusFunc: func(ctx context.Context, a *model.Appointment, next model.AppointmentStatus) error {
			status = next
			return nil
		},
	}
	f := newFixture(t, api, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), wednesday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, _ := f.svc.CurrentSlots(ctx, operator())
	if !view.Slots[0].IsBooked {
		t.Fatalf("09:00 should start booked")
	}

	updated, err := f.svc.UpdateAppointmentStatus(ctx, operator(), 1, model.StatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}

	view, _ = f.svc.CurrentSlots(ctx, operator())
	if view.Slots[0].IsBooked || !view.Slots[0].IsAvailable {
		t.Errorf("cancelling should free the slot after the reload: %+v", view.Slots[0])
	}
	if len(f.publisher.statusEvents) != 1 {
		t.Errorf("expected a status event")
	}

	_, err = f.svc.UpdateAppointmentStatus(ctx, operator(), 1, model.StatusCompleted)
	if !errors.Is(err, agendaerrors.ErrInvalidTransition) {
		t.Errorf("cancelled appointments cannot be completed, got %v", err)
	}
}

func TestUpdateAppointmentStatus_NotFound(t *testing.T) {
	f := newFixture(t, &mockAPI{}, 4)

	_, err := f.svc.UpdateAppointmentStatus(context.Background(), operator(), 42, model.StatusCompleted)
	if !errors.Is(err, agendaerrors.ErrAppointmentNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateAppointmentStatus_RemoteFailure(t *testing.T) {
	api := &mockAPI{
		appointmentsFunc: func(ctx context.Context) ([]*model.Appointment, error) {
			return []*model.Appointment{{ID: 1, Time: fixedNow, Status: model.StatusPending}}, nil
		},
		updateAppointmentStatusFunc: func(ctx context.Context, a *model.Appointment, status model.AppointmentStatus) error {
			return errors.New("status 500")
		},
	}
	f := newFixture(t, api, 4)

	_, err := f.svc.UpdateAppointmentStatus(context.Background(), operator(), 1, model.StatusCompleted)
	if !apperrors.HasCode(err, apperrors.CodeUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if len(f.publisher.statusEvents) != 0 {
		t.Errorf("no event should be published on failure")
	}
}

// ────────────────────────────────────────────────
// Save reports
// ────────────────────────────────────────────────

func TestSaveReports_ScopedToSubject(t *testing.T) {
	f := newFixture(t, &mockAPI{}, 4)
	ctx := context.Background()

	if _, err := f.svc.SelectDate(ctx, operator(), fixedNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report, err := f.svc.SaveSlots(ctx, operator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, total, err := f.svc.ListSaveReports(ctx, operator(), 10, 0)
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("expected one report, got %d/%d (%v)", len(list), total, err)
	}

	if _, err := f.svc.GetSaveReport(ctx, operator(), report.ID); err != nil {
		t.Errorf("owner should see the report: %v", err)
	}
	other := &session.Session{Subject: "8", IsAdmin: true}
	if _, err := f.svc.GetSaveReport(ctx, other, report.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("other operators must not see the report, got %v", err)
	}
}
