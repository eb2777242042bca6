package geo

import (
	"errors"
	"math"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

var (
	ErrLatitude  = errors.New("latitude must be between -90 and 90")
	ErrLongitude = errors.New("longitude must be between -180 and 180")
)

// Validate checks optional WGS84 coordinates. Nil means "not supplied" and is accepted.
func Validate(lat, lng *float64) error {
	if lat != nil && !inRange(*lat, MinLatitude, MaxLatitude) {
		return ErrLatitude
	}
	if lng != nil && !inRange(*lng, MinLongitude, MaxLongitude) {
		return ErrLongitude
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
