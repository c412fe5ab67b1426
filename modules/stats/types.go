package stats

import "time"

// ServiceGetStats is the request-reply service name for the counters.
const ServiceGetStats = "get-stats"

// Stats is a point-in-time copy of the lifecycle counters.
type Stats struct {
	RoomsCreated   int64            `json:"rooms_created"`
	RoomsDeleted   int64            `json:"rooms_deleted"`
	LockedRooms    int64            `json:"locked_rooms_created"`
	MatchesStarted int64            `json:"matches_started"`
	Joins          int64            `json:"joins"`
	Departures     int64            `json:"departures"`
	DeletedBy      map[string]int64 `json:"rooms_deleted_by_reason"`
	DepartedBy     map[string]int64 `json:"departures_by_reason"`
	ByMode         map[string]int64 `json:"rooms_created_by_mode"`
	LastEventAt    time.Time        `json:"last_event_at"`
}

// GetStatsRequest is the get-stats request.
type GetStatsRequest struct{}

// GetStatsResponse is the get-stats reply.
type GetStatsResponse struct {
	Stats Stats `json:"stats"`
}
