package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"barberdesk/internal/agenda/service"
	"barberdesk/internal/agenda/validator"
	apperrors "barberdesk/pkg/errors"
	httputil "barberdesk/pkg/http"
	"barberdesk/pkg/logger"
	"barberdesk/pkg/session"
)

type AgendaHandler struct {
	service   service.AgendaService
	validator *validator.RequestValidator
	log       *logger.Logger
}

func NewAgendaHandler(service service.AgendaService, validator *validator.RequestValidator, log *logger.Logger) *AgendaHandler {
	return &AgendaHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

func (h *AgendaHandler) Overview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "Overview")
	if !ok {
		return
	}

	history, err := httputil.ExtractBool(r, "history")
	if err != nil {
		h.writeError(w, "Overview", err)
		return
	}

	overview, err := h.service.Overview(r.Context(), sess, history)
	if err != nil {
		h.writeError(w, "Overview", err)
		return
	}

	if err := httputil.WriteSuccess(w, overview); err != nil {
		h.log.Error("failed to write success response", "handler", "Overview", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) CurrentSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "CurrentSlots")
	if !ok {
		return
	}

	view, err := h.service.CurrentSlots(r.Context(), sess)
	if err != nil {
		h.writeError(w, "CurrentSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "CurrentSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) SelectDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "SelectDate")
	if !ok {
		return
	}

	var req validator.SelectDateRequest
	if !h.decode(w, r, "SelectDate", &req) {
		return
	}

	date, err := h.validator.SelectDate(&req)
	if err != nil {
		h.writeError(w, "SelectDate", validationFailed("Invalid date", err))
		return
	}

	view, err := h.service.SelectDate(r.Context(), sess, date)
	if err != nil {
		h.writeError(w, "SelectDate", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "SelectDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) ToggleSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "ToggleSlot")
	if !ok {
		return
	}

	var req validator.ToggleSlotRequest
	if !h.decode(w, r, "ToggleSlot", &req) {
		return
	}

	slotTime, err := h.validator.ToggleTime(&req)
	if err != nil {
		h.writeError(w, "ToggleSlot", validationFailed("Invalid slot time", err))
		return
	}

	slot, err := h.service.ToggleSlot(r.Context(), sess, slotTime)
	if err != nil {
		h.writeError(w, "ToggleSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleSlot", "operation", "WriteSuccess", "error", err)
	}
}

// SaveSlots answers 200 with the report when every call succeeded. A partial
// failure is written as an error whose details carry the report.
func (h *AgendaHandler) SaveSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "SaveSlots")
	if !ok {
		return
	}

	report, err := h.service.SaveSlots(r.Context(), sess)
	if err != nil {
		h.writeError(w, "SaveSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "SaveSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sess, ok := h.session(w, r, "UpdateAppointmentStatus")
	if !ok {
		return
	}

	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "UpdateAppointmentStatus", apperrors.InvalidInput("invalid appointment id: "+ps.ByName("id")))
		return
	}

	var req validator.StatusRequest
	if !h.decode(w, r, "UpdateAppointmentStatus", &req) {
		return
	}

	status, err := h.validator.Status(&req)
	if err != nil {
		h.writeError(w, "UpdateAppointmentStatus", validationFailed("Invalid status", err))
		return
	}

	appt, err := h.service.UpdateAppointmentStatus(r.Context(), sess, id, status)
	if err != nil {
		h.writeError(w, "UpdateAppointmentStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateAppointmentStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) ListSaveReports(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := h.session(w, r, "ListSaveReports")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListSaveReports", err)
		return
	}

	reports, total, err := h.service.ListSaveReports(r.Context(), sess, limit, offset)
	if err != nil {
		h.writeError(w, "ListSaveReports", err)
		return
	}

	if err := httputil.WritePaginated(w, reports, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListSaveReports", "operation", "WritePaginated", "error", err)
	}
}

func (h *AgendaHandler) GetSaveReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sess, ok := h.session(w, r, "GetSaveReport")
	if !ok {
		return
	}

	report, err := h.service.GetSaveReport(r.Context(), sess, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSaveReport", err)
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSaveReport", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AgendaHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/agenda/overview", h.Overview)
	router.GET("/api/v1/agenda/slots", h.CurrentSlots)
	router.PUT("/api/v1/agenda/date", h.SelectDate)
	router.POST("/api/v1/agenda/slots/toggle", h.ToggleSlot)
	router.POST("/api/v1/agenda/slots/save", h.SaveSlots)
	router.PATCH("/api/v1/agenda/appointments/:id/status", h.UpdateAppointmentStatus)
	router.GET("/api/v1/agenda/save-reports", h.ListSaveReports)
	router.GET("/api/v1/agenda/save-reports/:id", h.GetSaveReport)
}

func (h *AgendaHandler) session(w http.ResponseWriter, r *http.Request, name string) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, name, apperrors.Unauthorized("missing operator session"))
		return nil, false
	}
	return sess, true
}

func (h *AgendaHandler) decode(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", name, "operation", "WriteJSON", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *AgendaHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func validationFailed(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, map[string]any{"errors": verrs})
	}
	return apperrors.InvalidInput(message)
}
