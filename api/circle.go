package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/rondafi/ronda/circle"
	"github.com/rondafi/ronda/coordinator"
	"github.com/rondafi/ronda/types"
)

// circleIDFromRequest parses the circle id URL parameter.
func circleIDFromRequest(r *http.Request) (types.CircleID, error) {
	var id types.CircleID
	if err := id.UnmarshalText([]byte(chi.URLParam(r, CircleURLParam))); err != nil {
		return 0, err
	}
	return id, nil
}

// newCircle creates a new savings circle
// POST /circles
func (a *API) newCircle(w http.ResponseWriter, r *http.Request) {
	req := &CreateCircleRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	params := coordinator.CreateParams{
		PayoutInterval:  time.Duration(req.PayoutIntervalSeconds) * time.Second,
		GracePeriod:     time.Duration(req.GracePeriodSeconds) * time.Second,
		MaxParticipants: req.MaxParticipants,
	}
	if req.Contribution != nil {
		params.Contribution = req.Contribution.MathBigInt()
	}
	id, err := a.coord.CreateCircle(req.Creator, params)
	if err != nil {
		if errors.Is(err, circle.ErrValidation) {
			ErrInvalidCircleParams.WithErr(err).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Infow("new circle", "circleId", id.String(), "creator", req.Creator.Hex())
	httpWriteJSON(w, &CreateCircleResponse{CircleID: id})
}

// circleList lists the active circle ids
// GET /circles
func (a *API) circleList(w http.ResponseWriter, _ *http.Request) {
	ids := a.coord.ActiveCircleIDs()
	if ids == nil {
		ids = []types.CircleID{}
	}
	httpWriteJSON(w, &CircleListResponse{Circles: ids})
}

// circleInfo serves the combined read model of one circle
// GET /circles/{circleId}
func (a *API) circleInfo(w http.ResponseWriter, r *http.Request) {
	id, err := circleIDFromRequest(r)
	if err != nil {
		ErrMalformedCircleID.WithErr(err).Write(w)
		return
	}
	info, err := a.coord.CircleInfo(id)
	if err != nil {
		ErrCircleNotFound.Withf("circle %s", id).Write(w)
		return
	}
	httpWriteJSON(w, info)
}

// circleParticipants serves the roster with per-participant status
// GET /circles/{circleId}/participants
func (a *API) circleParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := circleIDFromRequest(r)
	if err != nil {
		ErrMalformedCircleID.WithErr(err).Write(w)
		return
	}
	c, err := a.coord.Circle(id)
	if err != nil {
		ErrCircleNotFound.Withf("circle %s", id).Write(w)
		return
	}
	httpWriteJSON(w, &ParticipantsResponse{CircleID: id, Participants: c.Participants()})
}

// circleOrder serves the payout order once assigned
// GET /circles/{circleId}/order
func (a *API) circleOrder(w http.ResponseWriter, r *http.Request) {
	id, err := circleIDFromRequest(r)
	if err != nil {
		ErrMalformedCircleID.WithErr(err).Write(w)
		return
	}
	c, err := a.coord.Circle(id)
	if err != nil {
		ErrCircleNotFound.Withf("circle %s", id).Write(w)
		return
	}
	order, err := c.Order()
	if err != nil {
		if errors.Is(err, circle.ErrOrderNotAssigned) {
			ErrOrderNotAssigned.Withf("circle %s", id).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &OrderResponse{CircleID: id, PayoutOrder: order})
}

// circleEvents serves the circle's append-only event log
// GET /circles/{circleId}/events
func (a *API) circleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := circleIDFromRequest(r)
	if err != nil {
		ErrMalformedCircleID.WithErr(err).Write(w)
		return
	}
	events, err := a.coord.Events(id)
	if err != nil {
		ErrCircleNotFound.Withf("circle %s", id).Write(w)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	httpWriteJSON(w, &EventsResponse{CircleID: id, Events: events})
}
