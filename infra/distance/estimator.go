package distance

import (
	"context"
	"math"

	"github.com/cleanbear/dispatch/core/model"
)

const (
	defaultSpeedKMH = 40.0
	minEstimateMin  = 5.0
)

// Estimator approximates driving time from great-circle distance at a
// fixed average speed. It never fails, which makes it the provider for
// offline runs and the assign subcommand.
type Estimator struct {
	// SpeedKMH is the assumed average speed. Zero means 40 km/h.
	SpeedKMH float64
}

// TravelMinutes implements distance.Provider.
func (e Estimator) TravelMinutes(_ context.Context, from, to model.Coordinate) (float64, error) {
	speed := e.SpeedKMH
	if speed <= 0 {
		speed = defaultSpeedKMH
	}
	minutes := haversineKM(from, to) / speed * 60
	if minutes < minEstimateMin {
		minutes = minEstimateMin
	}
	return minutes, nil
}

// haversineKM returns the great-circle distance in kilometers.
func haversineKM(from, to model.Coordinate) float64 {
	const earthRadiusKM = 6371

	dLat := (to.Lat - from.Lat) * (math.Pi / 180)
	dLng := (to.Lng - from.Lng) * (math.Pi / 180)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(from.Lat*(math.Pi/180))*math.Cos(to.Lat*(math.Pi/180))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
