package rib

import (
	"log/slog"
	"net/netip"
	"time"

	apipb "github.com/osrg/gobgp/v3/api"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// pathDetail is the slice of a BGP path the monitor cares about.
type pathDetail struct {
	NextHop netip.Addr
	Metric  uint32
	Age     time.Duration
	IsBest  bool
}

// convertPath extracts next hop, metric (MED), and age from a GoBGP path.
// Unknown or unparsable attributes are skipped.
func convertPath(p *apipb.Path) pathDetail {
	detail := pathDetail{IsBest: p.Best}

	for _, a := range p.Pattrs {
		msg, err := anypb.UnmarshalNew(a, proto.UnmarshalOptions{})
		if err != nil {
			slog.Warn("failed to unmarshal path attribute", "error", err)
			continue
		}

		switch attr := msg.(type) {
		case *apipb.NextHopAttribute:
			detail.NextHop, _ = netip.ParseAddr(attr.NextHop)
		case *apipb.MultiExitDiscAttribute:
			detail.Metric = attr.Med
		case *apipb.MpReachNLRIAttribute:
			// IPv6 next hop arrives in MP_REACH
			if len(attr.NextHops) > 0 {
				detail.NextHop, _ = netip.ParseAddr(attr.NextHops[0])
			}
		}
	}

	if p.Age != nil {
		detail.Age = time.Since(p.Age.AsTime())
	}
	return detail
}

// bestPath picks the path the router actually uses: the one flagged best,
// or the first path when the router did not flag any.
func bestPath(paths []*apipb.Path) (pathDetail, bool) {
	if len(paths) == 0 {
		return pathDetail{}, false
	}
	for _, p := range paths {
		if p.Best {
			return convertPath(p), true
		}
	}
	return convertPath(paths[0]), true
}
