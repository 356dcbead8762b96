package sse

// ConnectedPayload is the first event on every stream
type ConnectedPayload struct {
	ClientID string   `json:"client_id"`
	Filters  []string `json:"filters,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
}
