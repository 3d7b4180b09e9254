package dnssec

import (
	"context"
	"time"

	"github.com/quietdns/vdns/cache"
	"github.com/quietdns/vdns/domain"
	expirationcache "github.com/0xERR0R/expiration-cache"
)

// KeyEntry is a validated (or definitively invalid) DNSKEY RRset for a
// zone, cached so repeated queries below that zone don't re-walk the
// chain of trust. It follows the Null/Bad/Good tri-state RFC 4035 §5.3.3
// implementer notes describe:
//
//   - isNull: no keys, validation status Indeterminate/Insecure - the zone
//     genuinely has no usable key set (e.g. an unsigned delegation).
//   - isBad: no keys, validation status Bogus - the zone's keys failed to
//     validate; treat everything below it as Bogus without re-checking.
//   - isGood: keys present, validation status Secure.
type KeyEntry struct {
	Zone   domain.Name
	SRRset *domain.SecureRRset
	Status ValidationResult
}

// IsNull reports whether this entry records an absence of DNSSEC below Zone.
func (k *KeyEntry) IsNull() bool {
	return k.SRRset == nil && k.Status != ValidationResultBogus
}

// IsBad reports whether this entry records a validation failure below Zone.
func (k *KeyEntry) IsBad() bool {
	return k.SRRset == nil && k.Status == ValidationResultBogus
}

// IsGood reports whether this entry holds a validated key set.
func (k *KeyEntry) IsGood() bool {
	return k.SRRset != nil && k.Status == ValidationResultSecure
}

// KeyCache caches validated-key verdicts by zone name, so a chain walk
// that has already resolved "example.com." to Bogus or Insecure never
// repeats the walk for "www.example.com.".
type KeyCache struct {
	entries cache.ExpiringCache[KeyEntry]
	ttl     time.Duration
}

// NewKeyCache builds a KeyCache with the given entry lifetime, backed by
// the same external expiration cache the validator uses for validation
// results.
func NewKeyCache(ctx context.Context, ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &KeyCache{
		entries: expirationcache.NewCache[KeyEntry](ctx, expirationcache.Options{
			CleanupInterval: time.Hour,
		}),
		ttl: ttl,
	}
}

// Find returns the cached entry for the closest cached ancestor of zone
// (including zone itself), or nil if nothing is cached along that path -
// short-circuiting the chain walk to the ancestor's status when found.
func (c *KeyCache) Find(zone string) *KeyEntry {
	name := domain.NewName(zone)

	for {
		if entry, _ := c.entries.Get(name.String()); entry != nil {
			return entry
		}

		if name.IsRoot() {
			return nil
		}

		name = name.Parent()
	}
}

// Put stores the validation verdict for zone.
func (c *KeyCache) Put(zone string, entry *KeyEntry) {
	c.entries.Put(domain.NewName(zone).String(), entry, c.ttl)
}

// PutGood caches a validated key RRset for zone.
func (c *KeyCache) PutGood(zone string, srrset *domain.SecureRRset) {
	c.Put(zone, &KeyEntry{
		Zone:   domain.NewName(zone),
		SRRset: srrset,
		Status: ValidationResultSecure,
	})
}

// PutNull caches an absence-of-DNSSEC verdict for zone.
func (c *KeyCache) PutNull(zone string, status ValidationResult) {
	c.Put(zone, &KeyEntry{Zone: domain.NewName(zone), Status: status})
}

// PutBad caches a validation-failure verdict for zone.
func (c *KeyCache) PutBad(zone string) {
	c.Put(zone, &KeyEntry{Zone: domain.NewName(zone), Status: ValidationResultBogus})
}
