package validator

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
	"github.com/musicinmybrain/validator/doe"
)

// proofState is the outcome of a DS-absence proof at a delegation point.
type proofState uint8

const (
	proofNothing proofState = iota
	proofInsecureDelegation
	proofSecureIntermediate
	proofBogus
)

// nsecForDS evaluates NSEC proofs that no DS RRset exists at name. This is
// simpler than general NSEC processing: wildcards are rejected outright (we
// do not support wildcard delegations), the name is known to exist, and the
// parent is already Secure. Either an NSEC matches the name exactly and its
// bitmap decides the outcome, or the name is covered as an empty non-terminal.
func (vc *ValidationContext) nsecForDS(name string, authorities groupSet, parent *Node) (proofState, time.Duration, *dns.EDNS0_EDE) {
	name = dns.CanonicalName(name)

	for _, g := range authorities {
		if g.rtype != dns.TypeNSEC {
			continue
		}
		records := extractRecords[*dns.NSEC](g.rrs)
		if len(records) == 0 {
			continue
		}
		nsec := records[0]
		set := doe.NewNSEC(parent.SignerName(), records)

		if namesEqual(g.owner, name) {
			state, wildcard, ede, ttl := g.validateWithNode(parent, vc.isig)
			if state != Secure {
				return proofBogus, ttl, ede
			}
			if wildcard != "" {
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "wildcard NSEC cannot prove DS absence")
			}

			switch {
			case bitmapHas(nsec.TypeBitMap, dns.TypeDS):
				// The bitmap claims a DS exists while the reply carried none.
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC bitmap contradicts missing DS RRset")
			case bitmapHas(nsec.TypeBitMap, dns.TypeSOA):
				// An apex NSEC is the wrong shape for a delegation point.
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC from the child apex cannot prove DS absence")
			case bitmapHas(nsec.TypeBitMap, dns.TypeNS):
				Debug(fmt.Sprintf("DS absence at [%s] proven via [%s]", name, NsecMissingDS))
				return proofInsecureDelegation, ttl, nil
			}
			return proofSecureIntermediate, ttl, nil
		}

		if set.CoversEmptyNonTerminal(name) != nil {
			state, wildcard, ede, ttl := g.validateWithNode(parent, vc.isig)
			if state != Secure {
				return proofBogus, ttl, ede
			}
			if wildcard != "" {
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "wildcard NSEC cannot prove DS absence")
			}
			return proofSecureIntermediate, ttl, nil
		}
	}

	return proofNothing, MaxNodeValidity, nil
}

// nsec3ForDS evaluates NSEC3 proofs that no DS RRset exists at name, with the
// same simplifications as nsecForDS. Either the hash of the name matches an
// NSEC3 owner and the bitmap decides, or the hash is covered by a range: with
// opt-out set that is an insecure delegation, without it the chain contradicts
// a name we know exists.
func (vc *ValidationContext) nsec3ForDS(name string, authorities groupSet, parent *Node) (proofState, time.Duration, *dns.EDNS0_EDE) {
	name = dns.CanonicalName(name)

	for _, g := range authorities {
		if g.rtype != dns.TypeNSEC3 {
			continue
		}
		records := extractRecords[*dns.NSEC3](g.rrs)
		if len(records) == 0 {
			continue
		}
		nsec3 := records[0]

		// RFC 9276: zones have no business using expensive iteration counts.
		// Above the hard limit we refuse to hash at all and treat the record
		// as an attack; above the soft limit we just ignore the record.
		if nsec3.Iterations > Nsec3IterationsBogus {
			ede := makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 iteration count exceeds the acceptable maximum")
			return proofBogus, BogusTTL, ede
		}
		if nsec3.Iterations > Nsec3IterationsInsecure {
			continue
		}

		set := doe.NewNSEC3(parent.SignerName(), vc.nsec3Hashes.hash, records)

		if set.Matches(name) != nil {
			state, _, ede, ttl := g.validateWithNode(parent, vc.isig)
			if state != Secure {
				return proofBogus, ttl, ede
			}

			switch {
			case bitmapHas(nsec3.TypeBitMap, dns.TypeDS):
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 bitmap contradicts missing DS RRset")
			case bitmapHas(nsec3.TypeBitMap, dns.TypeSOA):
				return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 from the child apex cannot prove DS absence")
			case bitmapHas(nsec3.TypeBitMap, dns.TypeNS):
				Debug(fmt.Sprintf("DS absence at [%s] proven via [%s]", name, Nsec3MissingDS))
				return proofInsecureDelegation, ttl, nil
			}
			return proofSecureIntermediate, ttl, nil
		}

		if covered, optOut := set.Covers(name); covered != nil {
			state, _, ede, ttl := g.validateWithNode(parent, vc.isig)
			if state != Secure {
				return proofBogus, ttl, ede
			}

			if optOut {
				// RFC 5155 section 6: the covered range may contain unsigned
				// delegations, so the best we can conclude is insecure.
				Debug(fmt.Sprintf("DS absence at [%s] proven via [%s]", name, Nsec3OptOut))
				return proofInsecureDelegation, ttl, nil
			}

			// No opt-out, yet the chain denies a name we know exists.
			return proofBogus, ttl, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 chain denies an existing delegation name")
		}
	}

	return proofNothing, MaxNodeValidity, nil
}

func bitmapHas(bitmap []uint16, t uint16) bool {
	for _, present := range bitmap {
		if present == t {
			return true
		}
	}
	return false
}
