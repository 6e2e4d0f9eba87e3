package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"routewatch/internal/config"
)

// snmpTrapOID is the standard snmpTrapOID.0 varbind every v2c trap carries.
const snmpTrapOID = ".1.3.6.1.6.3.1.1.4.1.0"

// SNMPChannel sends SNMPv2c traps to a management station. Each Send opens
// its own session; the process is short-lived so there is nothing to pool.
type SNMPChannel struct {
	cfg config.SNMPConfig
}

// NewSNMPChannel creates an SNMP trap channel from its configuration.
func NewSNMPChannel(cfg config.SNMPConfig) *SNMPChannel {
	return &SNMPChannel{cfg: cfg}
}

func (c *SNMPChannel) Name() string { return "snmp" }

// Send delivers one trap. Timeout and retries are handled by the SNMP
// session itself, per-channel as configured.
func (c *SNMPChannel) Send(ctx context.Context, kind Kind, actx Context) error {
	session := &gosnmp.GoSNMP{
		Target:    c.cfg.Target,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   time.Duration(c.cfg.TimeoutMs) * time.Millisecond,
		Retries:   c.cfg.Retries,
		Context:   ctx,
	}
	if err := session.Connect(); err != nil {
		return fmt.Errorf("connect to %s:%d: %w", c.cfg.Target, c.cfg.Port, err)
	}
	defer session.Conn.Close()

	base := c.cfg.EnterpriseOID
	variables := []gosnmp.SnmpPDU{
		{Name: snmpTrapOID, Type: gosnmp.ObjectIdentifier, Value: base + ".0." + fmt.Sprint(kind.trapCode())},
		{Name: base + ".1", Type: gosnmp.Integer, Value: kind.trapCode()},
		{Name: base + ".2", Type: gosnmp.OctetString, Value: actx.Route},
		{Name: base + ".3", Type: gosnmp.OctetString, Value: actx.NextHop},
		{Name: base + ".4", Type: gosnmp.Integer, Value: int(kind.Severity())},
	}
	if actx.HasAge {
		variables = append(variables, gosnmp.SnmpPDU{
			Name: base + ".5", Type: gosnmp.Gauge32, Value: uint(actx.AgeSeconds),
		})
	}

	if _, err := session.SendTrap(gosnmp.SnmpTrap{Variables: variables}); err != nil {
		return fmt.Errorf("send trap: %w", err)
	}
	return nil
}
