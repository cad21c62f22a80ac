package event

type Type string

const (
	TypeRegistered     Type = "auth.registered"
	TypeLoggedIn       Type = "auth.logged_in"
	TypeLoginFailed    Type = "auth.login_failed"
	TypeTokenRefreshed Type = "auth.token_refreshed"
	TypeLoggedOut      Type = "auth.logged_out"
)

type Event struct {
	ID          string `json:"id"`
	Type        Type   `json:"type"`
	Principal   string `json:"principal"`
	PrincipalID int64  `json:"principal_id,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
