package model

import "time"

// User represents an account in the platform. Accounts are created and
// managed by the surrounding CRUD surface; this service only reads them.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Team string `json:"team,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Type == "admin" }

// Token is an API access token issued to a user.
type Token struct {
	Value      string     `json:"value"`
	UserID     int64      `json:"userId"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// Challenge carries the subset of challenge fields the realtime core reads:
// identity, display name, the category used as an action-log topic, and the
// challenge's position on the shared map.
type Challenge struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// Position is a point on the shared map.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Character is the in-memory avatar of a logged-in user on the shared map.
// The wire shape keeps x/y flat; the connected map clients render from it
// directly.
type Character struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Team       string `json:"team"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Animation  string `json:"animation"`
	Time       string `json:"time"`
	Date       string `json:"date"`
	LastActive string `json:"last_active"`
}

// ActionLog is the persisted audit record of a contestant action.
// ActionDate is stored as an RFC 3339 string assigned at creation time.
type ActionLog struct {
	ActionID     int64  `json:"actionId"`
	UserID       int64  `json:"userId"`
	ActionType   int    `json:"actionType"`
	ActionDetail string `json:"actionDetail"`
	TopicName    string `json:"topicName"`
	ActionDate   string `json:"actionDate"`
}

// ActionLogDetail is an action log joined with the acting user's name and,
// when the topic resolves to a challenge category, that challenge's identity.
type ActionLogDetail struct {
	ActionLog
	UserName      string  `json:"userName"`
	ChallengeID   *int64  `json:"challengeId,omitempty"`
	ChallengeName *string `json:"challengeName,omitempty"`
}
