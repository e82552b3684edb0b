package model

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo allows Pending -> Completed and Pending -> Cancelled only.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusCancelled)
}

// ParseAppointmentStatus accepts the English names case-insensitively.
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	for _, s := range []AppointmentStatus{StatusPending, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

type Appointment struct {
	ID         int64             `json:"id"`
	Time       time.Time         `json:"time"`
	Status     AppointmentStatus `json:"status"`
	ClientName string            `json:"client_name,omitempty"`
	Client     *UserRef          `json:"client,omitempty"`
	Service    *ServiceRef       `json:"service,omitempty"`
	Staff      *UserRef          `json:"staff,omitempty"`
}

func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type ServiceRef struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name,omitempty"`
	Price       float64 `json:"price,omitempty"`
	DurationMin int     `json:"duration_min,omitempty"`
}
