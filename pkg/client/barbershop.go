package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"barberdesk/pkg/model"
	"barberdesk/pkg/session"

	"github.com/go-playground/validator/v10"
)

// BarbershopClient is the typed client of the remote barbershop API.
// Civil timestamps are read and written in loc.
type BarbershopClient struct {
	httpClient *HttpClient
	validate   *validator.Validate
	loc        *time.Location
}

func NewBarbershopClient(baseURL string, timeout time.Duration, loc *time.Location) *BarbershopClient {
	if loc == nil {
		loc = time.UTC
	}
	return &BarbershopClient{
		httpClient: NewHttpClient(baseURL, timeout),
		validate:   newSchemaValidator(),
		loc:        loc,
	}
}

func (c *BarbershopClient) Ping(ctx context.Context) error {
	return c.httpClient.Ping(ctx)
}

// SlotsByDate lists the persisted slots of a calendar date. A 404 surfaces
// as ErrNotFound.
func (c *BarbershopClient) SlotsByDate(ctx context.Context, sess *session.Session, date time.Time) ([]*model.TimeSlot, error) {
	path := "/horarios/disponiveis/" + url.PathEscape(date.In(c.loc).Format(model.DateLayout))
	resp, err := c.httpClient.GET(ctx, path, sess.BearerToken())
	if err != nil {
		return nil, err
	}

	dtos, err := decodeList[slotDTO](c, resp)
	if err != nil {
		return nil, err
	}

	slots := make([]*model.TimeSlot, 0, len(dtos))
	for i := range dtos {
		slot, err := dtos[i].toModel(date, c.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrSchema, i, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateSlot persists a new slot. localTime is civil time without offset.
func (c *BarbershopClient) CreateSlot(ctx context.Context, sess *session.Session, localTime string, available bool) error {
	_, err := c.httpClient.POST(ctx, "/horarios", &createSlotDTO{
		Horarios:   localTime,
		Disponivel: available,
	}, sess.BearerToken())
	return err
}

func (c *BarbershopClient) UpdateSlotAvailability(ctx context.Context, sess *session.Session, id int64, available bool) error {
	path := fmt.Sprintf("/horarios/%d/disponibilidade", id)
	query := url.Values{}
	query.Set("disponivel", strconv.FormatBool(available))
	_, err := c.httpClient.PUT(ctx, path, query, nil, sess.BearerToken())
	return err
}

func (c *BarbershopClient) Appointments(ctx context.Context, sess *session.Session) ([]*model.Appointment, error) {
	resp, err := c.httpClient.GET(ctx, "/agendamentos", sess.BearerToken())
	if err != nil {
		return nil, err
	}

	dtos, err := decodeList[appointmentDTO](c, resp)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Appointment, 0, len(dtos))
	for i := range dtos {
		a, err := dtos[i].toModel(c.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: appointment %d: %v", ErrSchema, dtos[i].IdAgendamento, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateAppointmentStatus sends the appointment back with the new status.
// Relations are referenced by identifier only.
func (c *BarbershopClient) UpdateAppointmentStatus(ctx context.Context, sess *session.Session, a *model.Appointment, status model.AppointmentStatus) error {
	path := fmt.Sprintf("/agendamentos/%d", a.ID)
	_, err := c.httpClient.PUT(ctx, path, nil, newAppointmentUpdate(a, status, c.loc), sess.BearerToken())
	return err
}

func (c *BarbershopClient) Services(ctx context.Context, sess *session.Session) ([]*model.Service, error) {
	resp, err := c.httpClient.GET(ctx, "/servicos", sess.BearerToken())
	if err != nil {
		return nil, err
	}
	dtos, err := decodeList[serviceDTO](c, resp)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Service, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].toModel()
	}
	return out, nil
}

func (c *BarbershopClient) Products(ctx context.Context, sess *session.Session) ([]*model.Product, error) {
	resp, err := c.httpClient.GET(ctx, "/produtos", sess.BearerToken())
	if err != nil {
		return nil, err
	}
	dtos, err := decodeList[productDTO](c, resp)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Product, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].toModel()
	}
	return out, nil
}

func (c *BarbershopClient) Users(ctx context.Context, sess *session.Session) ([]*model.User, error) {
	resp, err := c.httpClient.GET(ctx, "/usuarios", sess.BearerToken())
	if err != nil {
		return nil, err
	}
	dtos, err := decodeList[userDTO](c, resp)
	if err != nil {
		return nil, err
	}
	out := make([]*model.User, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].toModel()
	}
	return out, nil
}

// decodeList reads a JSON array and validates every element.
func decodeList[T any](c *BarbershopClient, resp *Response) ([]T, error) {
	var items []T
	if err := resp.DecodeJSON(&items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, resp.Request.URL.Path, err)
	}
	for i := range items {
		if err := c.validate.Struct(&items[i]); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrSchema, resp.Request.URL.Path, i, err)
		}
	}
	return items, nil
}
