// Package rib queries the watched route from a router's gobgpd over its
// gRPC API.
package rib

import (
	"fmt"
	"log/slog"
	"time"

	apipb "github.com/osrg/gobgp/v3/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"routewatch/internal/config"
	"routewatch/internal/tlsutil"
)

// Client is the route query collaborator. One Client serves one router.
type Client struct {
	conn         *grpc.ClientConn
	api          apipb.GobgpApiClient
	certLoader   *tlsutil.CertLoader
	queryTimeout time.Duration
	match        string
}

// New connects to the router's gobgpd API.
func New(cfg *config.Config) (*Client, error) {
	c := &Client{
		queryTimeout: time.Duration(cfg.Router.QueryTimeoutMs) * time.Millisecond,
		match:        cfg.Route.Match,
	}

	var opts []grpc.DialOption

	tlsCfg := cfg.Router.TLS
	if tlsCfg.Cert != "" && tlsCfg.Key != "" && tlsCfg.CA != "" {
		loader, err := tlsutil.NewCertLoader(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		caPool, err := tlsutil.LoadCAPool(tlsCfg.CA)
		if err != nil {
			loader.Close()
			return nil, fmt.Errorf("load CA: %w", err)
		}
		c.certLoader = loader
		opts = append(opts, grpc.WithTransportCredentials(
			credentials.NewTLS(tlsutil.ClientConfig(loader, caPool, tlsCfg.ServerName))))
	} else {
		slog.Warn("connecting to router WITHOUT TLS — connection is not authenticated")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             10 * time.Second,
		PermitWithoutStream: true,
	}))

	conn, err := grpc.NewClient(cfg.Router.Address, opts...)
	if err != nil {
		if c.certLoader != nil {
			c.certLoader.Close()
		}
		return nil, fmt.Errorf("connect to router %s: %w", cfg.Router.Address, err)
	}

	c.conn = conn
	c.api = apipb.NewGobgpApiClient(conn)
	return c, nil
}

// Close tears down the connection and the certificate watcher.
func (c *Client) Close() error {
	if c.certLoader != nil {
		c.certLoader.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
