package types

// ConnectionState represents the transport session lifecycle
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// UserProfile is the user object returned by the profile endpoint
type UserProfile struct {
	ID       string                 `json:"id,omitempty"`
	Username string                 `json:"username,omitempty"`
	Email    string                 `json:"email,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// DisplayName returns the best available human name
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// Status is the state pair exposed to the presentation layer
type Status struct {
	ConnectionState ConnectionState `json:"connection_state"`
	Waiting         bool            `json:"waiting"`
	Recording       bool            `json:"recording"`
	Authenticated   bool            `json:"authenticated"`
	User            *UserProfile    `json:"user,omitempty"`
}
