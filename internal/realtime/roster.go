package realtime

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/flagmap/flagmap/server/internal/model"
)

// Spawn bounds for characters that log in without a position.
const (
	spawnMinX = -300
	spawnMaxX = 300
	spawnMinY = -200
	spawnMaxY = 200
)

const defaultAnimation = "idle"
const defaultTeam = "No team"

// AddInput is the login payload a character is built from. Position and
// Animation are optional; absent fields fall back to a random spawn point
// and the idle animation.
type AddInput struct {
	ID        int64
	Name      string
	Team      string
	Position  *PositionPatch
	Animation string
}

// PositionPatch is a partial map position; nil axes keep their prior (or
// default) value.
type PositionPatch struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type rosterSnapshot struct {
	Characters []model.Character `json:"characters"`
}

type loginNotice struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
	Time string `json:"time"`
	Date string `json:"date"`
}

type removalNotice struct {
	ID int64 `json:"id"`
}

type positionUpdate struct {
	ID        int64          `json:"id"`
	Position  model.Position `json:"position"`
	Animation string         `json:"animation,omitempty"`
}

// Roster is the process-wide set of characters on the shared map. All
// mutation is serialized behind one mutex; operations return the events to
// publish instead of publishing them, so transitions stay unit-testable
// without a live transport.
type Roster struct {
	mu    sync.Mutex
	order []int64
	byID  map[int64]*model.Character

	now   func() time.Time
	spawn func() (x, y int)
}

func NewRoster() *Roster {
	return &Roster{
		byID: make(map[int64]*model.Character),
		now:  time.Now,
		spawn: func() (int, int) {
			return spawnMinX + rand.IntN(spawnMaxX-spawnMinX+1),
				spawnMinY + rand.IntN(spawnMaxY-spawnMinY+1)
		},
	}
}

// Add constructs a character from the login payload and inserts it.
// A second login for an id that is already on the map fails with
// model.ErrDuplicateCharacter and changes nothing.
//
// On success the returned events are, in order: the new character, the full
// roster snapshot, and the login notification summary.
func (ro *Roster) Add(in AddInput) (*model.Character, []Event, error) {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	if _, exists := ro.byID[in.ID]; exists {
		return nil, nil, model.ErrDuplicateCharacter
	}

	now := ro.now()
	x, y := ro.spawn()
	if in.Position != nil {
		if in.Position.X != nil {
			x = *in.Position.X
		}
		if in.Position.Y != nil {
			y = *in.Position.Y
		}
	}
	team := in.Team
	if team == "" {
		team = defaultTeam
	}
	anim := in.Animation
	if anim == "" {
		anim = defaultAnimation
	}

	ch := &model.Character{
		ID:         in.ID,
		Name:       in.Name,
		Team:       team,
		X:          x,
		Y:          y,
		Animation:  anim,
		Time:       now.Format("15:04:05"),
		Date:       now.Format("2006-01-02"),
		LastActive: now.Format(time.RFC3339),
	}
	ro.byID[in.ID] = ch
	ro.order = append(ro.order, in.ID)

	out := *ch
	events := []Event{
		{Name: EventAddCharacter, Payload: out},
		{Name: EventAllCharacters, Payload: rosterSnapshot{Characters: ro.snapshotLocked()}},
		{Name: EventUserLoginNotification, Payload: loginNotice{
			ID: out.ID, Name: out.Name, Team: out.Team, Time: out.Time, Date: out.Date,
		}},
	}
	return &out, events, nil
}

// Remove drops the character for the user. The removal event is returned
// even when the id is not on the map: clients treat it as idempotent, and
// the emit-regardless behavior covers the disconnect/logout race.
func (ro *Roster) Remove(userID int64) []Event {
	ro.mu.Lock()
	if _, ok := ro.byID[userID]; ok {
		delete(ro.byID, userID)
		for i, id := range ro.order {
			if id == userID {
				ro.order = append(ro.order[:i], ro.order[i+1:]...)
				break
			}
		}
	}
	ro.mu.Unlock()

	return []Event{{Name: EventRemoveCharacter, Payload: removalNotice{ID: userID}}}
}

// UpdatePosition merges the patch into the character's position, refreshes
// last-active, and optionally updates the animation. Unknown ids report
// false and produce no events.
func (ro *Roster) UpdatePosition(userID int64, pos PositionPatch, animation string) (bool, []Event) {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	ch, ok := ro.byID[userID]
	if !ok {
		return false, nil
	}

	if pos.X != nil {
		ch.X = *pos.X
	}
	if pos.Y != nil {
		ch.Y = *pos.Y
	}
	ch.LastActive = ro.now().Format(time.RFC3339)
	if animation != "" {
		ch.Animation = animation
	}

	return true, []Event{{Name: EventUpdatePosition, Payload: positionUpdate{
		ID:        userID,
		Position:  model.Position{X: ch.X, Y: ch.Y},
		Animation: animation,
	}}}
}

// Snapshot returns the characters in insertion order.
func (ro *Roster) Snapshot() []model.Character {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	return ro.snapshotLocked()
}

// SnapshotEvent returns an all-characters event for the current roster.
func (ro *Roster) SnapshotEvent() Event {
	return Event{Name: EventAllCharacters, Payload: rosterSnapshot{Characters: ro.Snapshot()}}
}

// Len returns the number of characters on the map.
func (ro *Roster) Len() int {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	return len(ro.order)
}

func (ro *Roster) snapshotLocked() []model.Character {
	out := make([]model.Character, 0, len(ro.order))
	for _, id := range ro.order {
		out = append(out, *ro.byID[id])
	}
	return out
}
