package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/itohio/kilnctl/internal/catalog"
	"github.com/itohio/kilnctl/internal/controller"
	"github.com/itohio/kilnctl/internal/executor"
	"github.com/itohio/kilnctl/internal/model"
)

const submitTimeout = 2 * time.Second

type handler struct {
	c      *controller.Controller
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrNotDeletable),
		errors.Is(err, catalog.ErrInvalidProgram),
		errors.Is(err, catalog.ErrPersistence),
		executor.IsInterlockActive(err):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// submit sends cmd to the Controller and bounds the wait so a stalled
// tick loop doesn't hang the HTTP request indefinitely.
func (h *handler) submit(r *http.Request, cmd controller.Command) (interface{}, error) {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	return h.c.Submit(ctx, cmd)
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.c.Latest()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot":       snap,
		"gpio_available": snap.GPIOAvailable,
		"now_ms":         snap.TickTimeMs,
	})
}

func (h *handler) getPrograms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.c.Programs())
}

func (h *handler) postStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID int `json:"program_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.submit(r, controller.Command{Kind: controller.CmdStart, ProgramID: req.ProgramID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postStop(w http.ResponseWriter, r *http.Request) {
	result, err := h.submit(r, controller.Command{Kind: controller.CmdStop})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postPause(w http.ResponseWriter, r *http.Request) {
	result, err := h.submit(r, controller.Command{Kind: controller.CmdPause})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postResume(w http.ResponseWriter, r *http.Request) {
	result, err := h.submit(r, controller.Command{Kind: controller.CmdResume})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postEmergency(w http.ResponseWriter, r *http.Request) {
	result, err := h.submit(r, controller.Command{Kind: controller.CmdEmergencyStop})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postPIDTune(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kp float64 `json:"kp"`
		Ki float64 `json:"ki"`
		Kd float64 `json:"kd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.submit(r, controller.Command{Kind: controller.CmdTunePID, Kp: req.Kp, Ki: req.Ki, Kd: req.Kd})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postProgramsSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string       `json:"name"`
		Steps []model.Step `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.submit(r, controller.Command{Kind: controller.CmdSaveUserProgram, Name: req.Name, Steps: req.Steps})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) deleteProgram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.submit(r, controller.Command{Kind: controller.CmdDeleteProgram, ProgramID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postErrorsClear(w http.ResponseWriter, r *http.Request) {
	result, err := h.submit(r, controller.Command{Kind: controller.CmdClearErrors})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) postTest(kind controller.CommandKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.submit(r, controller.Command{Kind: kind})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
