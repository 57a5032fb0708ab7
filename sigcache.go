package validator

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
)

// sigCache memoizes signature verification outcomes, keyed by the identity of
// (signature, key, signed data). Two disjoint instances are held by the
// ValidationContext: one for infrastructure (DS/DNSKEY) lookups and one for
// user query responses, so the capacity of each is bounded independently.
type sigCache struct {
	lru *lru.Cache
}

func newSigCache(capacity int) *sigCache {
	l, _ := lru.New(capacity)
	return &sigCache{lru: l}
}

func (c *sigCache) lookup(key string) (verified, found bool) {
	v, found := c.lru.Get(key)
	if !found {
		return false, false
	}
	return v.(bool), true
}

func (c *sigCache) store(key string, verified bool) {
	c.lru.Add(key, verified)
}

// sigCacheKey builds the verification identity. The RRSIG rdata covers the
// canonical RRset contents, so the signature bytes plus the public key plus
// the RRset presentation uniquely identify one verification.
func sigCacheKey(rrsig *dns.RRSIG, key *dns.DNSKEY, rrset []dns.RR) string {
	var b strings.Builder
	b.WriteString(rrsig.Signature)
	b.WriteByte('|')
	b.WriteString(dns.CanonicalName(key.Header().Name))
	b.WriteString(key.PublicKey)
	b.WriteByte('|')
	for _, rr := range rrset {
		b.WriteString(rr.String())
		b.WriteByte('\n')
	}
	return b.String()
}
