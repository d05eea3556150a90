package realtime

// Outbound event names. Connected map clients key their handlers on these.
const (
	EventConnectionAck         = "connection-ack"
	EventLoginSuccess          = "login-success"
	EventLoginError            = "login-error"
	EventForceLogout           = "force-logout"
	EventUserLoginNotification = "user-login-notification"
	EventAddCharacter          = "add-character-to-map"
	EventAllCharacters         = "all-characters"
	EventRemoveCharacter       = "remove-character-from-map"
	EventUpdatePosition        = "update-character-position"
	EventActionLogs            = "action_logs"
	EventChallengeSelected     = "challenge-selected"
	EventChallengePositions    = "update-challenge-positions"
)

// Inbound event names.
const (
	eventLogin                 = "login"
	eventLogout                = "logout"
	eventRequestAllCharacters  = "request-all-characters"
	eventRequestChallengeSpots = "request-challenge-positions"
)

// Event is a named broadcast waiting to be published. Roster transitions
// return events instead of publishing them so the state logic stays
// transport-free.
type Event struct {
	Name    string
	Payload interface{}
}

// Publisher fans out one event to every connected subscriber. Delivery is
// best-effort and fire-and-forget.
type Publisher interface {
	Broadcast(event string, payload interface{})
}
