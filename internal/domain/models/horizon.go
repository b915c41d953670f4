package models

// Horizon represents a prediction time-scale bucket.
type Horizon string

const (
	H15m Horizon = "15m"
	H1h  Horizon = "1h"
	H4h  Horizon = "4h"
	H24h Horizon = "24h"
)

// AllHorizons returns every supported horizon in ascending order.
// Components iterate this slice instead of indexing ad-hoc maps, so a new
// horizon only needs to be added here.
func AllHorizons() []Horizon {
	return []Horizon{H15m, H1h, H4h, H24h}
}

// IsValidHorizon returns true if h is a supported horizon.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case H15m, H1h, H4h, H24h:
		return true
	default:
		return false
	}
}

// DefaultHorizon returns the default horizon.
func DefaultHorizon() Horizon { return H1h }

// NormalizeHorizon converts raw string to a valid horizon (or default).
func NormalizeHorizon(s string) Horizon {
	if s == "" {
		return DefaultHorizon()
	}
	h := Horizon(s)
	if IsValidHorizon(h) {
		return h
	}
	return DefaultHorizon()
}
