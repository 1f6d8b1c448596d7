package onvif

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/camarr/camarr/internal/models"
)

const discoveryPort = 3702

// probeTemplate targets NetworkVideoTransmitter devices. Each probe carries
// a fresh urn:uuid MessageID as WS-Addressing requires.
const probeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Envelope xmlns="http://www.w3.org/2003/05/soap-envelope" xmlns:dn="http://www.onvif.org/ver10/network/wsdl">
    <Header>
        <wsa:MessageID xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing">urn:uuid:%s</wsa:MessageID>
        <wsa:To xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing">urn:schemas-xmlsoap-org:ws:2005:04:discovery</wsa:To>
        <wsa:Action xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing">http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</wsa:Action>
    </Header>
    <Body>
        <Probe xmlns="http://schemas.xmlsoap.org/ws/2005/04/discovery">
            <Types>dn:NetworkVideoTransmitter</Types>
            <Scopes />
        </Probe>
    </Body>
</Envelope>`

// Discover probes every address on the host's primary IPv4 /24 subnet over
// unicast UDP and returns the devices that answered. Duplicate addresses
// are dropped first-wins.
func (c *Client) Discover(ctx context.Context) ([]DiscoveredDevice, error) {
	base, err := localSubnetBase()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrProtocolFailure, err)
	}

	c.logger.Info("scanning subnet for ONVIF devices",
		slog.String("subnet", base+".1-254"),
		slog.Int("concurrency", c.discovery.concurrency),
	)

	results := make(chan *DiscoveredDevice, 254)
	sem := make(chan struct{}, c.discovery.concurrency)
	var wg sync.WaitGroup

	for i := 1; i <= 254; i++ {
		ip := fmt.Sprintf("%s.%d", base, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if dev := c.probeIP(ctx, ip); dev != nil {
				results <- dev
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var devices []DiscoveredDevice
	seen := make(map[string]bool)
	for dev := range results {
		if !seen[dev.Address] {
			seen[dev.Address] = true
			devices = append(devices, *dev)
		}
	}

	c.logger.Info("discovery finished", slog.Int("devices", len(devices)))
	return devices, nil
}

// probeIP sends one WS-Discovery probe and waits out the per-address
// deadline for a reply. All failures are swallowed; an unreachable address
// is the common case.
func (c *Client) probeIP(ctx context.Context, ip string) *DiscoveredDevice {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: net.ParseIP(ip), Port: discoveryPort}
	probe := fmt.Sprintf(probeTemplate, uuid.New())
	if _, err := conn.WriteTo([]byte(probe), target); err != nil {
		return nil
	}

	deadline := c.nowFn().Add(c.discovery.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil
	}

	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		return nil
	}

	dev, ok := parseProbeMatch(string(buf[:n]), ip)
	if !ok {
		return nil
	}
	return dev
}

// localSubnetBase returns the first three octets of the host's primary
// IPv4 address. The UDP dial does not send packets; it only selects the
// outbound interface.
func localSubnetBase() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("determining local IP: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return "", fmt.Errorf("no IPv4 address on primary interface")
	}
	ip4 := addr.IP.To4()
	return fmt.Sprintf("%d.%d.%d", ip4[0], ip4[1], ip4[2]), nil
}
