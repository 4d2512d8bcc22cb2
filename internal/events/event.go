package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action 為 movement 的異動種類
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	return a == ActionCreated || a == ActionUpdated || a == ActionDeleted
}

// MovementEvent 是 movement 異動後發出的訊息
type MovementEvent struct {
	Action     Action    `json:"action"`
	MovementID string    `json:"movementId"`
	ActorID    int       `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e MovementEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseMovementEvent 解析訊息內容，未知的 action 視為錯誤
func ParseMovementEvent(body []byte) (MovementEvent, error) {
	var e MovementEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return MovementEvent{}, fmt.Errorf("unmarshal movement event: %w", err)
	}
	if !e.Action.Valid() {
		return MovementEvent{}, fmt.Errorf("unknown movement event action %q", e.Action)
	}
	return e, nil
}
