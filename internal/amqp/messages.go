package amqp

import (
	"encoding/json"
	"time"
)

// ChangeEvent tells peer instances that a user's data changed and which
// cached views are stale. An empty Views list means every view of the user.
type ChangeEvent struct {
	InstanceID string    `json:"instanceId"`
	UserID     string    `json:"userId"`
	Views      []string  `json:"views,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeEvent(instanceID, userID string, views ...string) *ChangeEvent {
	return &ChangeEvent{
		InstanceID: instanceID,
		UserID:     userID,
		Views:      views,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes an event body.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
