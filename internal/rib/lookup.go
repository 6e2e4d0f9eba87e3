package rib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/gaissmai/bart"
	apipb "github.com/osrg/gobgp/v3/api"

	"routewatch/internal/config"
	"routewatch/internal/model"
)

// Lookup queries the router's global table for the watched prefix and
// returns the observation. A route that is not present yields
// {Exists: false} with a nil error; transport and RPC failures are returned
// to the caller, which folds them into absence.
func (c *Client) Lookup(ctx context.Context, prefixStr string) (model.RouteInfo, error) {
	pfx, err := netip.ParsePrefix(prefixStr)
	if err != nil {
		return model.RouteInfo{}, fmt.Errorf("parse watched prefix: %w", err)
	}
	pfx = pfx.Masked()

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	dests, err := c.listDestinations(ctx, pfx, apipb.TableLookupPrefix_EXACT)
	if err != nil {
		return model.RouteInfo{}, err
	}
	detail, found := exactMatch(pfx, dests)

	if !found && c.match == config.MatchLPM {
		dests, err = c.listDestinations(ctx, pfx, apipb.TableLookupPrefix_SHORTER)
		if err != nil {
			return model.RouteInfo{}, err
		}
		detail, found = coveringMatch(pfx, dests)
	}

	if !found {
		return model.RouteInfo{}, nil
	}
	age := int64(detail.Age.Seconds())
	if age < 0 {
		age = 0
	}
	return model.RouteInfo{
		Exists:     true,
		AgeSeconds: age,
		NextHop:    detail.NextHop,
		Metric:     detail.Metric,
	}, nil
}

func (c *Client) listDestinations(ctx context.Context, pfx netip.Prefix, lookupType apipb.TableLookupPrefix_Type) ([]*apipb.Destination, error) {
	family := &apipb.Family{Afi: apipb.Family_AFI_IP, Safi: apipb.Family_SAFI_UNICAST}
	if pfx.Addr().Is6() {
		family.Afi = apipb.Family_AFI_IP6
	}

	stream, err := c.api.ListPath(ctx, &apipb.ListPathRequest{
		TableType: apipb.TableType_GLOBAL,
		Family:    family,
		Prefixes: []*apipb.TableLookupPrefix{
			{Prefix: pfx.String(), Type: lookupType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list paths for %s: %w", pfx, err)
	}

	var dests []*apipb.Destination
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receive paths for %s: %w", pfx, err)
		}
		if resp.Destination != nil {
			dests = append(dests, resp.Destination)
		}
	}
	return dests, nil
}

// exactMatch returns the best path of the destination whose prefix equals
// the watched prefix.
func exactMatch(watched netip.Prefix, dests []*apipb.Destination) (pathDetail, bool) {
	for _, d := range dests {
		p, err := netip.ParsePrefix(d.Prefix)
		if err != nil {
			continue
		}
		if p.Masked() == watched {
			return bestPath(d.Paths)
		}
	}
	return pathDetail{}, false
}

// coveringMatch picks the most specific destination covering the watched
// prefix. Candidates go into a routing trie and the watched prefix's
// address selects the longest match.
func coveringMatch(watched netip.Prefix, dests []*apipb.Destination) (pathDetail, bool) {
	var trie bart.Table[pathDetail]
	inserted := 0
	for _, d := range dests {
		p, err := netip.ParsePrefix(d.Prefix)
		if err != nil {
			continue
		}
		detail, ok := bestPath(d.Paths)
		if !ok {
			continue
		}
		trie.Insert(p.Masked(), detail)
		inserted++
	}
	if inserted == 0 {
		return pathDetail{}, false
	}
	return trie.Lookup(watched.Addr())
}
