package monitor

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// ICMPProber sends a single ICMP echo request without spawning a process.
//
// Unprivileged mode uses datagram ICMP sockets (Linux needs
// net.ipv4.ping_group_range to include the process group). Privileged mode
// uses raw sockets and needs CAP_NET_RAW or root.
type ICMPProber struct {
	privileged bool
	timeout    time.Duration
	logger     zerolog.Logger
	id         int
	seq        atomic.Uint32
}

func NewICMPProber(privileged bool, logger zerolog.Logger) *ICMPProber {
	return &ICMPProber{
		privileged: privileged,
		timeout:    ProbeTimeout,
		logger:     logger.With().Str("component", "icmp-prober").Logger(),
		id:         os.Getpid() & 0xffff,
	}
}

func (p *ICMPProber) Probe(ctx context.Context, address string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("address", address).Interface("panic", r).Msg("icmp probe panicked")
			res = Offline("panic")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ip, err := resolveIP(ctx, address)
	if err != nil {
		p.logger.Debug().Err(err).Str("address", address).Msg("resolve failed")
		return Offline("unresolvable")
	}

	rtt, err := p.echo(ctx, ip)
	if err != nil {
		reason := classifyProbeError(err)
		if ctx.Err() != nil {
			reason = classifyProbeError(ctx.Err())
		}
		p.logger.Debug().Err(err).Str("address", address).Str("reason", reason).Msg("icmp echo failed")
		return Offline(reason)
	}
	return Classify(rtt)
}

func (p *ICMPProber) echo(ctx context.Context, ip net.IP) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v4 := ip.To4() != nil

	network, listen, proto := "udp6", "::", protocolIPv6ICMP
	var reqType, replyType icmp.Type = ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
	if v4 {
		network, listen, proto = "udp4", "0.0.0.0", protocolICMP
		reqType, replyType = ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	if p.privileged {
		network = "ip6:ipv6-icmp"
		if v4 {
			network = "ip4:icmp"
		}
	}

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return 0, fmt.Errorf("listen %s: %w", network, err)
	}
	defer conn.Close()

	// Unblocks ReadFrom when the caller goes away.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return 0, fmt.Errorf("set deadline: %w", err)
		}
	}

	seq := int(p.seq.Add(1) & 0xffff)
	payload := []byte("netguard-probe")
	msg := icmp.Message{
		Type: reqType,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: payload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("marshal echo: %w", err)
	}

	var dst net.Addr = &net.IPAddr{IP: ip}
	if !p.privileged {
		dst = &net.UDPAddr{IP: ip}
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return 0, fmt.Errorf("write echo: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, fmt.Errorf("read reply: %w", err)
		}
		reply, err := icmp.ParseMessage(proto, rb[:n])
		if err != nil || reply.Type != replyType {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		// Datagram sockets rewrite the echo ID, so only the sequence is
		// matched in unprivileged mode.
		if !ok || echo.Seq != seq || (p.privileged && echo.ID != p.id) {
			continue
		}
		return time.Since(start), nil
	}
}

// resolveIP returns the first IPv4 address for host, falling back to IPv6.
func resolveIP(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if ip := preferIPv4(addrs); ip != nil {
		return ip, nil
	}
	return nil, fmt.Errorf("no addresses for %s", host)
}

func preferIPv4(addrs []net.IPAddr) net.IP {
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP
	}
	return nil
}
