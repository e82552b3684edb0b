package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"barberdesk/pkg/logger"
	"barberdesk/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SelectDateRequest struct {
	Date string `json:"date" validate:"required,agenda_date"`
}

type ToggleSlotRequest struct {
	Time string `json:"time" validate:"required,agenda_time"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,appointment_status"`
}

// RequestValidator checks request bodies and converts them into values in
// the business location.
type RequestValidator struct {
	validate *validator.Validate
	loc      *time.Location
	logger   *logger.Logger
}

func NewRequestValidator(loc *time.Location, log *logger.Logger) *RequestValidator {
	v := validator.New()

	if err := v.RegisterValidation("agenda_date", validateDate); err != nil {
		log.Fatal("Failed to register 'agenda_date' validator", "error", err)
	}
	if err := v.RegisterValidation("agenda_time", validateLocalTime); err != nil {
		log.Fatal("Failed to register 'agenda_time' validator", "error", err)
	}
	if err := v.RegisterValidation("appointment_status", validateStatus); err != nil {
		log.Fatal("Failed to register 'appointment_status' validator", "error", err)
	}

	return &RequestValidator{
		validate: v,
		loc:      loc,
		logger:   log,
	}
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.DateLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateLocalTime(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.LocalTimeLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateStatus(fl validator.FieldLevel) bool {
	_, err := model.ParseAppointmentStatus(fl.Field().String())
	return err == nil
}

// SelectDate returns midnight of the requested date in the business location.
func (v *RequestValidator) SelectDate(req *SelectDateRequest) (time.Time, error) {
	if err := v.check(req); err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(model.DateLayout, strings.TrimSpace(req.Date), v.loc)
}

// ToggleTime returns the slot instant named by the request.
func (v *RequestValidator) ToggleTime(req *ToggleSlotRequest) (time.Time, error) {
	if err := v.check(req); err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(model.LocalTimeLayout, strings.TrimSpace(req.Time), v.loc)
}

func (v *RequestValidator) Status(req *StatusRequest) (model.AppointmentStatus, error) {
	if err := v.check(req); err != nil {
		return "", err
	}
	return model.ParseAppointmentStatus(req.Status)
}

func (v *RequestValidator) check(req any) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *RequestValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()
		field := strings.ToLower(err.Field())

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "agenda_date":
			message = "date must use the yyyy-MM-dd format"
		case "agenda_time":
			message = "time must use the yyyy-MM-ddTHH:mm:ss format"
		case "appointment_status":
			message = "status must be one of Pending, Completed, Cancelled"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}
