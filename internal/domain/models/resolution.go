package models

import "time"

// LabelResolution is a resolved ground-truth label for one round/horizon,
// delivered by the external resolver once the horizon's window elapses.
type LabelResolution struct {
	Round   int       `json:"round"`
	Horizon Horizon   `json:"horizon"`
	Label   bool      `json:"label"`
	At      time.Time `json:"at"`
}
