package validator

import (
	"time"

	"github.com/miekg/dns"
)

func extractRecords[T dns.RR](rr []dns.RR) []T {
	r := make([]T, 0, len(rr))
	for _, record := range rr {
		if typedRecord, ok := record.(T); ok {
			r = append(r, typedRecord)
		}
	}
	return r
}

func namesEqual(s1, s2 string) bool {
	return dns.CanonicalName(s1) == dns.CanonicalName(s2)
}

// parentName returns the name with its first label removed; the parent of a
// single-label name (and of the root) is the root.
func parentName(name string) string {
	labelIndexes := dns.Split(name)
	if len(labelIndexes) < 2 {
		return "."
	}
	return name[labelIndexes[1]:]
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func ttlToDuration(ttl uint32) time.Duration {
	return time.Duration(ttl) * time.Second
}

// ttlForSig bounds a signature's contribution to a cache lifetime: the
// original TTL it asserts, the TTL it arrived with, and the time left until
// the signature itself expires.
func ttlForSig(rrsig *dns.RRSIG) time.Duration {
	ttl := minDuration(ttlToDuration(rrsig.OrigTtl), ttlToDuration(rrsig.Hdr.Ttl))

	expiry := time.Unix(int64(rrsig.Expiration), 0)
	if remaining := time.Until(expiry); remaining < ttl {
		ttl = remaining
	}
	return ttl
}

// supportedAlgorithm reports whether we can verify signatures made with the
// given DNSKEY algorithm (RFC 8624 MUST/RECOMMENDED validation set).
func supportedAlgorithm(algorithm uint8) bool {
	switch algorithm {
	case dns.RSASHA1,
		dns.RSASHA1NSEC3SHA1,
		dns.RSASHA256,
		dns.RSASHA512,
		dns.ECDSAP256SHA256,
		dns.ECDSAP384SHA384,
		dns.ED25519:
		return true
	}
	return false
}

// supportedDigest reports whether we can compute the given DS digest type.
func supportedDigest(digestType uint8) bool {
	switch digestType {
	case dns.SHA1, dns.SHA256, dns.SHA384:
		return true
	}
	return false
}
