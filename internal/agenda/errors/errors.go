package errors

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found in the current list")

	ErrSlotBooked = errors.New("booked slots cannot be toggled")

	ErrSuperseded = errors.New("result superseded by a newer request")

	ErrReloading = errors.New("slot list is being reloaded")

	ErrNoDateSelected = errors.New("no date selected")

	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrInvalidTransition = errors.New("invalid appointment status transition")

	ErrReportNotFound = errors.New("save report not found")
)
