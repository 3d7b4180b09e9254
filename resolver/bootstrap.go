package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/log"
	"github.com/quietdns/vdns/model"
	"github.com/quietdns/vdns/util"
	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals
var (
	v4v6QTypes = []dns.Type{dns.Type(dns.TypeA), dns.Type(dns.TypeAAAA)}
)

// Bootstrap allows resolving hostnames using the configured bootstrap DNS.
type Bootstrap struct {
	log *logrus.Entry
	cfg *config.Config

	resolver    Resolver
	upstream    Resolver // the upstream that's part of the above resolver
	upstreamIPs []net.IP // IPs for b.upstream

	systemResolver *net.Resolver
}

// NewBootstrap creates and returns a new Bootstrap.
// Internally, it uses a CachingResolver and an UpstreamResolver.
// Only the first configured bootstrap upstream is used; entries after it
// exist for forward-compatibility with multi-upstream failover.
func NewBootstrap(cfg *config.Config) (b *Bootstrap, err error) {
	log := log.PrefixedLog("bootstrap")

	var upstream config.Upstream

	var ips []net.IP

	if len(cfg.BootstrapDNS) > 0 {
		upstream = cfg.BootstrapDNS[0].Upstream
	}

	switch {
	case upstream.IsDefault():
		log.Infof("bootstrapDns is not configured, will use system resolver")
	case upstream.Net == config.NetProtocolTcpUdp:
		ip := net.ParseIP(upstream.Host)
		if ip == nil {
			return nil, fmt.Errorf("bootstrapDns uses %s but is not an IP", upstream.Net)
		}

		ips = append(ips, ip)
	default:
		ips = cfg.BootstrapDNS[0].IPs
		if len(ips) == 0 {
			return nil, fmt.Errorf("bootstrapDns.IPs is required when upstream uses %s", upstream.Net)
		}
	}

	// Create b in multiple steps: Bootstrap and UpstreamResolver have a cyclic dependency
	// This also prevents the GC to clean up these two structs, but is not currently an
	// issue since they stay allocated until the process terminates
	b = &Bootstrap{
		log:            log,
		cfg:            cfg,
		upstreamIPs:    ips,
		systemResolver: net.DefaultResolver, // allow replacing it during tests
	}

	if upstream.IsDefault() {
		return b, nil
	}

	b.upstream = newUpstreamResolverUnchecked(upstream)

	b.resolver = Chain(
		NewFilteringResolver(cfg.Filtering),
		NewCachingResolver(cfg.Caching, nil),
		b.upstream,
	)

	return b, nil
}

// newUpstreamResolverUnchecked builds an UpstreamResolver for use by the bootstrap
// chain itself, where the target IPs are already pinned via upstreamIPs.
func newUpstreamResolverUnchecked(upstream config.Upstream) Resolver {
	return NewUpstreamResolver(upstream)
}

// NewHTTPTransport returns a new http.Transport that uses b to resolve hostnames
func (b *Bootstrap) NewHTTPTransport() *http.Transport {
	if b.resolver == nil {
		return &http.Transport{}
	}

	dialer := net.Dialer{}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			log := b.log.WithField("network", network).WithField("addr", addr)

			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				log.Errorf("dial error: %s", err)

				return nil, err
			}

			connectIPVersion := b.cfg.ConnectIPVersion

			var qTypes []dns.Type

			switch {
			case connectIPVersion != config.IPVersionDual: // ignore `network` if a specific version is configured
				qTypes = connectIPVersion.QTypes()
			case strings.HasSuffix(network, "4"):
				qTypes = []dns.Type{dns.Type(dns.TypeA)}
			case strings.HasSuffix(network, "6"):
				qTypes = []dns.Type{dns.Type(dns.TypeAAAA)}
			default:
				qTypes = v4v6QTypes
			}

			// Resolve the host with the bootstrap DNS
			ips, err := b.resolve(ctx, host, qTypes)
			if err != nil {
				log.Errorf("resolve error: %s", err)

				return nil, err
			}

			ip := ips[rand.Intn(len(ips))] //nolint:gosec

			log.WithField("ip", ip).Tracef("dialing %s", host)

			// Use the standard dialer to actually connect
			addrWithIP := net.JoinHostPort(ip.String(), port)

			return dialer.DialContext(ctx, network, addrWithIP)
		},
	}
}

func (b *Bootstrap) resolve(ctx context.Context, hostname string, qTypes []dns.Type) (ips []net.IP, err error) {
	ips = make([]net.IP, 0, len(qTypes))

	for _, qType := range qTypes {
		qIPs, qErr := b.resolveType(ctx, hostname, qType)
		if qErr != nil {
			err = multierror.Append(err, qErr)

			continue
		}

		ips = append(ips, qIPs...)
	}

	if err == nil && len(ips) == 0 {
		return nil, fmt.Errorf("no such host %s", hostname)
	}

	return
}

func (b *Bootstrap) resolveType(ctx context.Context, hostname string, qType dns.Type) (ips []net.IP, err error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return []net.IP{ip}, nil
	}

	req := model.Request{
		Req: util.NewMsgWithQuestion(dns.Fqdn(hostname), uint16(qType)),
		Log: b.log,
	}

	rsp, err := b.resolver.Resolve(ctx, &req)
	if err != nil {
		return nil, err
	}

	if rsp.Res.Rcode != dns.RcodeSuccess {
		return nil, nil
	}

	ips = make([]net.IP, 0, len(rsp.Res.Answer))

	for _, a := range rsp.Res.Answer {
		switch rr := a.(type) {
		case *dns.A:
			ips = append(ips, rr.A)
		case *dns.AAAA:
			ips = append(ips, rr.AAAA)
		}
	}

	return ips, nil
}

type IPSet struct {
	values []net.IP
	index  uint32
}

func newIPSet(ips []net.IP) *IPSet {
	return &IPSet{values: ips}
}

func (ips *IPSet) Current() net.IP {
	idx := atomic.LoadUint32(&ips.index)

	return ips.values[idx]
}

func (ips *IPSet) Next() {
	oldIP := ips.index
	newIP := uint32(int(ips.index+1) % len(ips.values))

	// We don't care about the result: if the call fails,
	// it means the value was incremented by another goroutine
	_ = atomic.CompareAndSwapUint32(&ips.index, oldIP, newIP)
}
