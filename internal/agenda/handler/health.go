package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	httputil "barberdesk/pkg/http"
	"barberdesk/pkg/logger"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database,omitempty"`
	Barbershop string `json:"barbershop,omitempty"`
}

// MongoPinger is satisfied by *mongo.Client.
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type APIPinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	mongo MongoPinger
	api   APIPinger
	log   *logger.Logger
}

func NewHealthHandler(mongo MongoPinger, api APIPinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongo: mongo,
		api:   api,
		log:   log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok", Barbershop: "ok"}
	status := http.StatusOK

	if err := h.mongo.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Database = "error"
		status = http.StatusServiceUnavailable
	}
	if err := h.api.Ping(ctx); err != nil {
		h.log.Error("Barbershop API health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Barbershop = "error"
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		resp.Status = "unavailable"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
