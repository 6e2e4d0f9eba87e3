package model

import "net/netip"

// Status classifies the stability of the watched route.
type Status string

const (
	// StatusUnknown is the default before any observation has been recorded.
	// It is never produced by classification; it only appears as the prior
	// status on a cold start.
	StatusUnknown  Status = "UNKNOWN"
	StatusMissing  Status = "MISSING"
	StatusFlapping Status = "FLAPPING"
	StatusStable   Status = "STABLE"
)

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusMissing, StatusFlapping, StatusStable:
		return true
	}
	return false
}

// RouteInfo is a single observation of the watched route. When Exists is
// false the remaining fields carry no meaning and must be ignored.
type RouteInfo struct {
	Exists     bool
	AgeSeconds int64
	NextHop    netip.Addr
	Metric     uint32
}

// MonitorState is the record persisted between runs.
type MonitorState struct {
	LastStatus Status `json:"last_status"`
	LastCheck  int64  `json:"last_check"`
}
