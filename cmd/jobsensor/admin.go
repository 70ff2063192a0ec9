package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ahrav/jobsensor/internal/app/sensor"
)

// controller is the part of the sensor the admin endpoints drive.
type controller interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
	State() sensor.State
	Accepting() bool
	Stats() sensor.PoolStats
	Descriptor() sensor.Descriptor
}

type statusResponse struct {
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	State     string           `json:"state"`
	Accepting bool             `json:"accepting"`
	Pool      sensor.PoolStats `json:"pool"`
}

func newAdminMux(s controller) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.HandleFunc("GET /readiness", func(w http.ResponseWriter, r *http.Request) {
		// Running is not enough: the accept loop can die with the listener.
		if !s.Accepting() {
			st := s.State()
			msg := st.String()
			if st == sensor.StateRunning {
				msg = "running, not accepting"
			}
			http.Error(w, msg, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Ready")
	})
	mux.HandleFunc("GET /sensor", func(w http.ResponseWriter, r *http.Request) {
		d := s.Descriptor()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			Name:      d.Name,
			Type:      d.Type,
			State:     s.State().String(),
			Accepting: s.Accepting(),
			Pool:      s.Stats(),
		})
	})
	mux.HandleFunc("POST /sensor/suspend", transition(s.Suspend))
	mux.HandleFunc("POST /sensor/resume", transition(s.Resume))

	return mux
}

func transition(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(r.Context())
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, sensor.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
