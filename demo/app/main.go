package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ride struct {
	ID      string `json:"id"`
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
}

type review struct {
	RideID string `json:"rideId"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type marketplace struct {
	mu      sync.Mutex
	rides   []ride
	reviews []review
}

func (m *marketplace) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"name": "demo rider", "city": "Dhaka"})
	})
	r.Get("/api/rides", m.listRides)
	r.Post("/api/rides", m.createRide)
	r.Post("/api/reviews", m.createReview)
	r.Get("/api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{{"id": "u-1", "role": "driver"}})
	})

	return r
}

func (m *marketplace) listRides(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	out := append([]ride(nil), m.rides...)
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (m *marketplace) createRide(w http.ResponseWriter, r *http.Request) {
	var in ride
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	in.ID = uuid.NewString()
	m.mu.Lock()
	m.rides = append(m.rides, in)
	m.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func (m *marketplace) createReview(w http.ResponseWriter, r *http.Request) {
	var in review
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	m.mu.Lock()
	m.reviews = append(m.reviews, in)
	m.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "safego-demo").Logger()

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           (&marketplace{}).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("listen", srv.Addr).Msg("demo marketplace listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("demo marketplace stopped")
	}
}
