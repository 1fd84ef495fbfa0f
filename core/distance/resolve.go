package distance

import (
	"context"

	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/model"
)

// ResolveJobs geocodes jobs that carry an address but no coordinate.
// Failures are logged and left unresolved; the engine classifies those
// jobs when it validates them.
func ResolveJobs(ctx context.Context, geo Geocoder, jobs []model.Job, log logger.Logger) {
	if geo == nil {
		return
	}
	for i := range jobs {
		loc := jobs[i].Location
		if loc.HasCoord() || loc.Address == "" {
			continue
		}
		coord, err := geo.Geocode(ctx, loc.Address)
		if err != nil {
			log.Warnf("geocode job %s failed: %v", jobs[i].ID, err)
			continue
		}
		jobs[i].Location.Coord = &coord
	}
}

// ResolveTechnicians geocodes technician homes that carry an address but
// no coordinate. Failures are logged and left unresolved; screening turns
// those technicians into skipped entries.
func ResolveTechnicians(ctx context.Context, geo Geocoder, techs []model.Technician, log logger.Logger) {
	if geo == nil {
		return
	}
	for i := range techs {
		home := techs[i].Home
		if home.HasCoord() || home.Address == "" {
			continue
		}
		coord, err := geo.Geocode(ctx, home.Address)
		if err != nil {
			log.Warnf("geocode technician %s failed: %v", techs[i].ID, err)
			continue
		}
		techs[i].Home.Coord = &coord
	}
}
