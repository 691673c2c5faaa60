package monitor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"

	"netguard/internal/registry"
)

func TestResolveIP_Literal(t *testing.T) {
	for _, host := range []string{"10.0.0.1", "::1", "2001:db8::7"} {
		ip, err := resolveIP(context.Background(), host)
		require.NoError(t, err, host)
		assert.True(t, net.ParseIP(host).Equal(ip), host)
	}
}

func TestPreferIPv4(t *testing.T) {
	v6 := net.IPAddr{IP: net.ParseIP("2001:db8::1")}
	v4 := net.IPAddr{IP: net.ParseIP("192.0.2.10")}

	assert.True(t, v4.IP.Equal(preferIPv4([]net.IPAddr{v6, v4})))
	assert.True(t, v6.IP.Equal(preferIPv4([]net.IPAddr{v6})))
	assert.Nil(t, preferIPv4(nil))
}

func TestICMPProber_Unresolvable(t *testing.T) {
	p := NewICMPProber(false, zerolog.Nop())
	assert.Equal(t, Offline("unresolvable"), p.Probe(context.Background(), "host.invalid"))
}

// skipWithoutPingSocket skips when the sandbox forbids unprivileged ICMP
// sockets (net.ipv4.ping_group_range).
func skipWithoutPingSocket(t *testing.T) {
	t.Helper()
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		t.Skipf("icmp datagram socket unavailable: %v", err)
	}
	conn.Close()
}

func TestICMPProber_Loopback(t *testing.T) {
	skipWithoutPingSocket(t)

	p := NewICMPProber(false, zerolog.Nop())
	res := p.Probe(context.Background(), "127.0.0.1")
	assert.Equal(t, registry.StatusOnline, res.Status)
	assert.GreaterOrEqual(t, res.Latency, 1)
}

func TestICMPProber_Canceled(t *testing.T) {
	skipWithoutPingSocket(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewICMPProber(false, zerolog.Nop())
	assert.Equal(t, Offline("canceled"), p.Probe(ctx, "127.0.0.1"))
}

func TestICMPProber_NoReply(t *testing.T) {
	skipWithoutPingSocket(t)

	p := NewICMPProber(false, zerolog.Nop())
	p.timeout = 100 * time.Millisecond

	start := time.Now()
	// TEST-NET-1 is never routed.
	res := p.Probe(context.Background(), "192.0.2.1")
	assert.Equal(t, registry.StatusOffline, res.Status)
	assert.Zero(t, res.Latency)
	assert.Less(t, time.Since(start), time.Second)
}
