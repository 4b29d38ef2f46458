package notify

// Channel is stored in DB.
type Channel struct {
	ID      int64
	Name    string
	URL     string
	Events  []string
	Enabled bool
}

// ChannelDTO is sent/received over the API.
type ChannelDTO struct {
	ID      int64    `json:"id" example:"1" doc:"Channel ID"`
	Name    string   `json:"name" example:"ops-alerts" doc:"Channel name"`
	URL     string   `json:"url" example:"https://example.com/hooks/rollouts" doc:"Delivery endpoint URL"`
	Events  []string `json:"events" example:"rollout.completed,rollout.rolled_back" doc:"Events to subscribe to"`
	Enabled bool     `json:"enabled" example:"true" doc:"Whether channel is active"`
}

type EventPayload struct {
	Event string `json:"event" example:"wave.completed" doc:"Event type"`
	Data  any    `json:"data" doc:"Event-specific payload data"`
	Time  string `json:"time" example:"2026-01-15T10:30:00Z" doc:"Event timestamp in RFC3339 format"`
}
