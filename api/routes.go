package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// CirclesEndpoint lists active circles (GET) and creates one (POST)
	CirclesEndpoint = "/circles"
	// CircleURLParam is the URL parameter carrying the circle id
	CircleURLParam = "circleId"
	// CircleEndpoint serves the combined read model of one circle
	CircleEndpoint = "/circles/{" + CircleURLParam + "}"
	// CircleParticipantsEndpoint serves the roster with per-participant status
	CircleParticipantsEndpoint = "/circles/{" + CircleURLParam + "}/participants"
	// CircleOrderEndpoint serves the payout order once assigned
	CircleOrderEndpoint = "/circles/{" + CircleURLParam + "}/order"
	// CircleEventsEndpoint serves the circle's append-only event log
	CircleEventsEndpoint = "/circles/{" + CircleURLParam + "}/events"
)
