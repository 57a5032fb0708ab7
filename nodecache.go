package validator

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
)

// nodeCache memoizes Nodes by name. It is bounded (plain LRU eviction) and
// TTL-aware: expired entries are treated as absent and dropped on lookup.
// There is no background sweep; expiry is lazy.
type nodeCache struct {
	lru *lru.Cache
}

func newNodeCache(capacity int) *nodeCache {
	l, _ := lru.New(capacity)
	return &nodeCache{lru: l}
}

func (c *nodeCache) lookup(name string) *Node {
	name = dns.CanonicalName(name)

	v, found := c.lru.Get(name)
	if !found {
		return nil
	}

	node := v.(*Node)
	if node.Expired() {
		c.lru.Remove(name)
		return nil
	}

	return node
}

func (c *nodeCache) insert(name string, node *Node) {
	c.lru.Add(dns.CanonicalName(name), node)
}
