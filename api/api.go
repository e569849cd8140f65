// Package api exposes the circle query surface over HTTP: per-circle read
// models, rosters, payout orders, and event logs, plus circle creation. All
// participant-facing mutations (join, pay, payout) are mediated by the host
// execution environment, not by this API.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/rondafi/ronda/coordinator"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host        string
	Port        int
	Coordinator *coordinator.Coordinator
}

// API type represents the API HTTP server.
type API struct {
	router *chi.Mux
	coord  *coordinator.Coordinator
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Coordinator == nil {
		return nil, fmt.Errorf("missing coordinator instance")
	}
	a := &API{
		coord: conf.Coordinator,
	}
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes.
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", CirclesEndpoint, "method", "GET")
	a.router.Get(CirclesEndpoint, a.circleList)
	log.Infow("register handler", "endpoint", CirclesEndpoint, "method", "POST")
	a.router.Post(CirclesEndpoint, a.newCircle)
	log.Infow("register handler", "endpoint", CircleEndpoint, "method", "GET")
	a.router.Get(CircleEndpoint, a.circleInfo)
	log.Infow("register handler", "endpoint", CircleParticipantsEndpoint, "method", "GET")
	a.router.Get(CircleParticipantsEndpoint, a.circleParticipants)
	log.Infow("register handler", "endpoint", CircleOrderEndpoint, "method", "GET")
	a.router.Get(CircleOrderEndpoint, a.circleOrder)
	log.Infow("register handler", "endpoint", CircleEventsEndpoint, "method", "GET")
	a.router.Get(CircleEventsEndpoint, a.circleEvents)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
