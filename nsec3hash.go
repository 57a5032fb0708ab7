package validator

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
)

// nsec3HashCache memoizes NSEC3 owner hashes. Hashing is iterated SHA-1 and
// attacker-chosen iteration counts make it expensive, so results are reused
// across records and across requests.
type nsec3HashCache struct {
	lru *lru.Cache
}

func newNsec3HashCache(capacity int) *nsec3HashCache {
	l, _ := lru.New(capacity)
	return &nsec3HashCache{lru: l}
}

// hash returns the base32hex NSEC3 hash of name, or "" when the parameters are
// not supported.
func (c *nsec3HashCache) hash(name string, algorithm uint8, iterations uint16, salt string) string {
	name = dns.CanonicalName(name)
	key := fmt.Sprintf("%s|%d|%d|%s", name, algorithm, iterations, salt)

	if v, found := c.lru.Get(key); found {
		return v.(string)
	}

	h := dns.HashName(name, algorithm, iterations, salt)
	c.lru.Add(key, h)
	return h
}
