package client

import (
	"fmt"
	"strings"
	"time"

	"barberdesk/pkg/model"
	"barberdesk/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

// Wire shapes of the barbershop API. Field names follow the remote service.

type slotDTO struct {
	ID         *int64 `json:"idHorarioDisponivel"`
	Horarios   string `json:"horarios" validate:"required,remote_time"`
	Disponivel bool   `json:"disponivel"`
}

type createSlotDTO struct {
	Horarios   string `json:"horarios"`
	Disponivel bool   `json:"disponivel"`
}

type userTypeDTO struct {
	ID   int64  `json:"id"`
	Nome string `json:"nomeTipoUsuario"`
}

type userDTO struct {
	IdUsuario   int64        `json:"idUsuario" validate:"required,gt=0"`
	NomeUsuario string       `json:"nomeUsuario" validate:"required,max=200"`
	Email       string       `json:"email" validate:"omitempty,email"`
	Cpf         string       `json:"cpf"`
	Telefone    string       `json:"telefone"`
	FotoUrl     string       `json:"fotoUrl"`
	TipoUsuario *userTypeDTO `json:"tipoUsuario"`
}

type userRefDTO struct {
	IdUsuario   int64  `json:"idUsuario" validate:"required,gt=0"`
	NomeUsuario string `json:"nomeUsuario,omitempty"`
}

type serviceDTO struct {
	IdServico   int64   `json:"idServico" validate:"required,gt=0"`
	NomeServico string  `json:"nomeServico" validate:"required,max=200"`
	Preco       float64 `json:"preco" validate:"gte=0"`
	Duracao     int     `json:"duracao" validate:"gte=0"`
}

type serviceRefDTO struct {
	IdServico   int64   `json:"idServico" validate:"required,gt=0"`
	NomeServico string  `json:"nomeServico,omitempty"`
	Preco       float64 `json:"preco,omitempty"`
	Duracao     int     `json:"duracao,omitempty"`
}

type productDTO struct {
	IdProduto   int64   `json:"idProduto" validate:"required,gt=0"`
	NomeProduto string  `json:"nomeProduto" validate:"required,max=200"`
	Descricao   string  `json:"descricao"`
	Preco       float64 `json:"preco" validate:"gte=0"`
	Estoque     int     `json:"estoque" validate:"gte=0"`
	ImgUrl      string  `json:"imgUrl"`
}

type appointmentDTO struct {
	IdAgendamento int64          `json:"idAgendamento" validate:"required,gt=0"`
	DataHora      string         `json:"dataHora" validate:"required,remote_time"`
	Status        string         `json:"status" validate:"required,oneof=Pendente Concluído Concluido Cancelado"`
	Usuario       *userRefDTO    `json:"usuario"`
	Servico       *serviceRefDTO `json:"servico"`
	NomeCliente   string         `json:"nomeCliente"`
	Profissional  *userRefDTO    `json:"profissional"`
}

// appointmentUpdateDTO carries relation identifiers only.
type appointmentUpdateDTO struct {
	IdAgendamento int64      `json:"idAgendamento"`
	DataHora      string     `json:"dataHora"`
	NomeCliente   string     `json:"nomeCliente,omitempty"`
	Status        string     `json:"status"`
	Usuario       *idUserDTO `json:"usuario"`
	Servico       *idServDTO `json:"servico"`
	Profissional  *idUserDTO `json:"profissional"`
}

type idUserDTO struct {
	IdUsuario int64 `json:"idUsuario"`
}

type idServDTO struct {
	IdServico int64 `json:"idServico"`
}

var remoteTimeLayouts = []string{
	model.LocalTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseRemoteTime reads a timestamp from the barbershop API. Values with an
// offset keep it; civil values are interpreted in loc.
func ParseRemoteTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range remoteTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func validateRemoteTime(fl validator.FieldLevel) bool {
	_, err := ParseRemoteTime(fl.Field().String(), time.UTC)
	return err == nil
}

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("remote_time", validateRemoteTime)
	return v
}

var statusFromWire = map[string]model.AppointmentStatus{
	"Pendente":  model.StatusPending,
	"Concluído": model.StatusCompleted,
	"Concluido": model.StatusCompleted,
	"Cancelado": model.StatusCancelled,
}

var statusToWire = map[model.AppointmentStatus]string{
	model.StatusPending:   "Pendente",
	model.StatusCompleted: "Concluído",
	model.StatusCancelled: "Cancelado",
}

func (d *slotDTO) toModel(date time.Time, loc *time.Location) (*model.TimeSlot, error) {
	ts, err := ParseRemoteTime(d.Horarios, loc)
	if err != nil {
		return nil, err
	}
	slot := &model.TimeSlot{
		Time:        ts,
		IsAvailable: d.Disponivel,
		Date:        model.StartOfDay(date.In(loc)),
	}
	if d.ID != nil {
		slot.ID = *d.ID
	}
	return slot, nil
}

func (d *appointmentDTO) toModel(loc *time.Location) (*model.Appointment, error) {
	ts, err := ParseRemoteTime(d.DataHora, loc)
	if err != nil {
		return nil, err
	}
	a := &model.Appointment{
		ID:         d.IdAgendamento,
		Time:       ts,
		Status:     statusFromWire[d.Status],
		ClientName: sanitizer.NormalizeName(d.NomeCliente),
	}
	if d.Usuario != nil {
		a.Client = &model.UserRef{ID: d.Usuario.IdUsuario, Name: sanitizer.NormalizeName(d.Usuario.NomeUsuario)}
		if a.ClientName == "" {
			a.ClientName = a.Client.Name
		}
	}
	if d.Servico != nil {
		a.Service = &model.ServiceRef{
			ID:          d.Servico.IdServico,
			Name:        sanitizer.NormalizeName(d.Servico.NomeServico),
			Price:       d.Servico.Preco,
			DurationMin: d.Servico.Duracao,
		}
	}
	if d.Profissional != nil {
		a.Staff = &model.UserRef{ID: d.Profissional.IdUsuario, Name: sanitizer.NormalizeName(d.Profissional.NomeUsuario)}
	}
	return a, nil
}

func newAppointmentUpdate(a *model.Appointment, status model.AppointmentStatus, loc *time.Location) *appointmentUpdateDTO {
	out := &appointmentUpdateDTO{
		IdAgendamento: a.ID,
		DataHora:      a.Time.In(loc).Format(model.LocalTimeLayout),
		NomeCliente:   a.ClientName,
		Status:        statusToWire[status],
	}
	if a.Client != nil {
		out.Usuario = &idUserDTO{IdUsuario: a.Client.ID}
	}
	if a.Service != nil {
		out.Servico = &idServDTO{IdServico: a.Service.ID}
	}
	if a.Staff != nil {
		out.Profissional = &idUserDTO{IdUsuario: a.Staff.ID}
	}
	return out
}

func (d *serviceDTO) toModel() *model.Service {
	return &model.Service{
		ID:          d.IdServico,
		Name:        sanitizer.NormalizeName(d.NomeServico),
		Price:       d.Preco,
		DurationMin: d.Duracao,
	}
}

func (d *productDTO) toModel() *model.Product {
	return &model.Product{
		ID:          d.IdProduto,
		Name:        sanitizer.NormalizeName(d.NomeProduto),
		Description: d.Descricao,
		Price:       d.Preco,
		Stock:       d.Estoque,
		ImageURL:    d.ImgUrl,
	}
}

func (d *userDTO) toModel() *model.User {
	u := &model.User{
		ID:       d.IdUsuario,
		Name:     sanitizer.NormalizeName(d.NomeUsuario),
		Email:    d.Email,
		CPF:      d.Cpf,
		Phone:    d.Telefone,
		PhotoURL: d.FotoUrl,
	}
	if d.TipoUsuario != nil {
		u.Type = d.TipoUsuario.Nome
	}
	return u
}
