// Package classify maps a route observation to a stability status.
package classify

import "routewatch/internal/model"

// Classify returns the stability status for a route observation given the
// flap-age threshold in seconds. An absent route is MISSING; a route younger
// than the threshold is FLAPPING; everything else is STABLE. Age exactly
// equal to the threshold is on the STABLE side of the boundary.
func Classify(info model.RouteInfo, thresholdSeconds int64) model.Status {
	if !info.Exists {
		return model.StatusMissing
	}
	if info.AgeSeconds < thresholdSeconds {
		return model.StatusFlapping
	}
	return model.StatusStable
}
