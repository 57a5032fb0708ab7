package validator

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestNsec3HashCache_MatchesDirectHashing(t *testing.T) {

	cache := newNsec3HashCache(DefaultNsec3HashCacheCapacity)

	expected := dns.HashName("example.com.", dns.SHA1, 2, "ABCDEF")
	assert.Equal(t, expected, cache.hash("example.com.", dns.SHA1, 2, "ABCDEF"))

	// Repeated calls serve the memoized digest.
	assert.Equal(t, expected, cache.hash("example.com.", dns.SHA1, 2, "ABCDEF"))

	// Any parameter change produces a different digest.
	assert.NotEqual(t, expected, cache.hash("example.org.", dns.SHA1, 2, "ABCDEF"))
	assert.NotEqual(t, expected, cache.hash("example.com.", dns.SHA1, 3, "ABCDEF"))
	assert.NotEqual(t, expected, cache.hash("example.com.", dns.SHA1, 2, "ABCDEE"))

}

func TestTrace_ShortID(t *testing.T) {

	trace := newTrace()

	assert.Len(t, trace.ShortID(), 7)
	assert.Contains(t, trace.ID(), trace.ShortID())

	// Each trace gets its own identity.
	assert.NotEqual(t, trace.ID(), newTrace().ID())

}
