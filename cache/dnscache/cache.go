// Package dnscache is a credibility-aware DNS response cache: an LRU- and
// TTL-bounded store, built directly on cache/expirationcache's generic
// cache, that additionally tracks the RFC 2181 §5.4.1 credibility of
// each cached element so a later, less trustworthy response can never
// evict a more trustworthy one.
package dnscache

import (
	"strconv"
	"strings"
	"time"

	"github.com/quietdns/vdns/cache/expirationcache"
	"github.com/quietdns/vdns/domain"
	"github.com/quietdns/vdns/zone"

	"github.com/miekg/dns"
)

// Element is a cached, credibility-tagged unit: either a positive RRset
// or a negative (NXDOMAIN/NXRRSET) result.
type Element struct {
	Positive    []dns.RR
	Negative    zone.SetResponseType // NXDOMAIN or NXRRSET; zero value unused for negative-only entries
	Credibility Credibility
}

// LookupResult is the outcome of a Cache.LookupRecords call.
type LookupResult struct {
	Type zone.SetResponseType
	RRs  []dns.RR
	// Unknown is true if no cached element (positive or negative) met the
	// caller's minimum credibility - the cache has no opinion and the
	// caller must ask upstream.
	Unknown bool
}

// Config bounds the cache's size and TTLs.
type Config struct {
	MaxEntries      uint
	MaxTTL          time.Duration // 0 means no additional cap beyond the RRset's own TTL
	MaxNegativeTTL  time.Duration
}

const defaultNegativeTTL = 3 * time.Hour

// Cache is a credibility-aware DNS record cache.
type Cache struct {
	cfg   Config
	store *expirationcache.ExpiringLRUCache[Element]
}

// New builds a Cache backed by an ExpiringLRUCache, following the same
// construction pattern the rest of the module uses for TTL-bounded
// stores.
func New(cfg Config) *Cache {
	opts := []expirationcache.CacheOption[Element]{}
	if cfg.MaxEntries > 0 {
		opts = append(opts, expirationcache.WithMaxSize[Element](cfg.MaxEntries))
	}

	return &Cache{
		cfg:   cfg,
		store: expirationcache.NewCache[Element](opts...),
	}
}

func cacheKey(name domain.Name, qtype uint16) string {
	return strings.ToLower(name.String()) + "/" + strconv.Itoa(int(qtype))
}

func negativeKey(name domain.Name) string {
	return strings.ToLower(name.String()) + "/NEG"
}

// LookupRecords looks up qtype at qname, requiring at least minCred
// credibility. It first checks for a direct positive or negative hit at
// qname, then walks qname's ancestors toward the root looking for a
// negative (NXDOMAIN) entry that also proves qname doesn't exist -
// an NXDOMAIN cached for "example.com." implies the nonexistence of
// every name below it too.
func (c *Cache) LookupRecords(qname string, qtype uint16, minCred Credibility) LookupResult {
	name := domain.NewName(qname)

	if val, _ := c.store.Get(cacheKey(name, qtype)); val != nil && val.Credibility >= minCred {
		return LookupResult{Type: zone.SUCCESSFUL, RRs: val.Positive}
	}

	if val, _ := c.store.Get(negativeKey(name)); val != nil && val.Credibility >= minCred {
		return LookupResult{Type: val.Negative}
	}

	for ancestor := name.Parent(); !ancestor.IsRoot(); ancestor = ancestor.Parent() {
		if val, _ := c.store.Get(negativeKey(ancestor)); val != nil &&
			val.Credibility >= minCred && val.Negative == zone.NXDOMAIN {
			return LookupResult{Type: zone.NXDOMAIN}
		}
	}

	return LookupResult{Unknown: true}
}

// AddMessage stores the positive and negative elements derivable from a
// DNS response, deriving each element's credibility from its section and
// the message's AA bit, and only ever raising - never lowering - the
// credibility already on file for a name (RFC 2181 §5.4.1 monotonicity).
func (c *Cache) AddMessage(msg *dns.Msg) {
	if msg == nil || len(msg.Question) == 0 {
		return
	}

	q := msg.Question[0]

	c.addSection(msg.Answer, sectionAnswer, msg.Authoritative)
	c.addSection(msg.Ns, sectionAuthority, msg.Authoritative)
	c.addSection(msg.Extra, sectionAdditional, msg.Authoritative)

	if msg.Rcode == dns.RcodeNameError {
		c.putNegative(domain.NewName(q.Name), zone.NXDOMAIN, credibilityFor(sectionAuthority, msg.Authoritative), c.negativeTTL(msg))
	} else if msg.Rcode == dns.RcodeSuccess && len(msg.Answer) == 0 {
		c.putNegative(domain.NewName(q.Name), zone.NXRRSET, credibilityFor(sectionAuthority, msg.Authoritative), c.negativeTTL(msg))
	}
}

func (c *Cache) addSection(rrs []dns.RR, sec section, authoritative bool) {
	sets := domain.GroupRRsets(rrs)
	cred := credibilityFor(sec, authoritative)

	for key, set := range sets {
		ttl := c.positiveTTL(set.RRs)
		if ttl <= 0 {
			continue
		}

		c.putPositive(key.Name, key.Type, set.RRs, cred, ttl)
	}
}

func (c *Cache) putPositive(name domain.Name, qtype uint16, rrs []dns.RR, cred Credibility, ttl time.Duration) {
	key := cacheKey(name, qtype)
	if existing, _ := c.store.Get(key); existing != nil && existing.Credibility > cred {
		return
	}

	c.store.Put(key, &Element{Positive: rrs, Credibility: cred}, ttl)
}

func (c *Cache) putNegative(name domain.Name, kind zone.SetResponseType, cred Credibility, ttl time.Duration) {
	key := negativeKey(name)
	if existing, _ := c.store.Get(key); existing != nil && existing.Credibility > cred {
		return
	}

	c.store.Put(key, &Element{Negative: kind, Credibility: cred}, ttl)
}

func (c *Cache) positiveTTL(rrs []dns.RR) time.Duration {
	if len(rrs) == 0 {
		return 0
	}

	minTTL := rrs[0].Header().Ttl
	for _, rr := range rrs[1:] {
		if rr.Header().Ttl < minTTL {
			minTTL = rr.Header().Ttl
		}
	}

	ttl := time.Duration(minTTL) * time.Second
	if c.cfg.MaxTTL > 0 && ttl > c.cfg.MaxTTL {
		return c.cfg.MaxTTL
	}

	return ttl
}

// negativeTTL implements the min(SOA.minimum, SOA.ttl) formula (RFC 2308
// §5), capped by the configured maximum negative TTL.
func (c *Cache) negativeTTL(msg *dns.Msg) time.Duration {
	maxNeg := c.cfg.MaxNegativeTTL
	if maxNeg <= 0 {
		maxNeg = defaultNegativeTTL
	}

	for _, rr := range msg.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			ttl := soa.Header().Ttl
			if soa.Minttl < ttl {
				ttl = soa.Minttl
			}

			d := time.Duration(ttl) * time.Second
			if d > maxNeg {
				return maxNeg
			}

			return d
		}
	}

	return maxNeg
}

// TotalCount returns the number of cached elements (positive and negative).
func (c *Cache) TotalCount() int {
	return c.store.TotalCount()
}

// Clear removes all cached elements.
func (c *Cache) Clear() {
	c.store.Clear()
}
