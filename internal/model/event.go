package model

import (
	"encoding/json"
	"time"
)

// Direction is the side of a crossing event.
type Direction int

const (
	Enter Direction = iota + 1 // fast line crossed above slow
	Exit                       // fast line crossed below slow
)

func (d Direction) String() string {
	switch d {
	case Enter:
		return "ENTER"
	case Exit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the direction by name.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// CrossEvent is a single directional crossing of the fast line over the slow line.
type CrossEvent struct {
	Direction Direction `json:"direction"`
	Index     int       `json:"index"` // position in the source price series
	TS        time.Time `json:"ts"`
	Price     float64   `json:"price"` // reference price at the event
}
