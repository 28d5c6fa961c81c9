// Package httpapi exposes the command surface of spec §6 over HTTP: a
// gorilla/mux router with gorilla/handlers recovery and an
// httpsnoop-instrumented access log, translating JSON to
// controller.Controller calls with no business logic of its own.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/itohio/kilnctl/internal/controller"
)

// NewRouter builds the full route table for c.
func NewRouter(c *controller.Controller, logger *slog.Logger) http.Handler {
	h := &handler{c: c, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/programs", h.getPrograms).Methods(http.MethodGet)
	r.HandleFunc("/programs/save", h.postProgramsSave).Methods(http.MethodPost)
	r.HandleFunc("/programs/{id}", h.deleteProgram).Methods(http.MethodDelete)
	r.HandleFunc("/start", h.postStart).Methods(http.MethodPost)
	r.HandleFunc("/stop", h.postStop).Methods(http.MethodPost)
	r.HandleFunc("/pause", h.postPause).Methods(http.MethodPost)
	r.HandleFunc("/resume", h.postResume).Methods(http.MethodPost)
	r.HandleFunc("/emergency", h.postEmergency).Methods(http.MethodPost)
	r.HandleFunc("/pid/tune", h.postPIDTune).Methods(http.MethodPost)
	r.HandleFunc("/errors/clear", h.postErrorsClear).Methods(http.MethodPost)
	r.HandleFunc("/test/heater", h.postTest(controller.CmdTestHeater)).Methods(http.MethodPost)
	r.HandleFunc("/test/vacuum", h.postTest(controller.CmdTestVacuum)).Methods(http.MethodPost)
	r.HandleFunc("/test/fan", h.postTest(controller.CmdTestFan)).Methods(http.MethodPost)
	r.HandleFunc("/test/sensors", h.postTest(controller.CmdTestSensors)).Methods(http.MethodPost)

	recovered := handlers.RecoveryHandler()(r)
	return accessLog(logger, recovered)
}

// accessLog wraps next with an httpsnoop-captured structured access log,
// one slog line per request with method, path, status, duration, and bytes
// written.
func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration_ms", m.Duration.Milliseconds(),
			"bytes", m.Written,
		)
	})
}
