package validator

import (
	"context"
	"strings"

	"github.com/miekg/dns"
)

// trustAnchorNode builds the Node for a configured trust anchor by fetching
// the live DNSKEY RRset at the anchor owner and verifying it against the
// anchor records.
func (vc *ValidationContext) trustAnchorNode(ctx context.Context, ta *TrustAnchor) (*Node, error) {
	answers, _, ede := vc.requestAsGroups(ctx, ta.Owner(), dns.TypeDNSKEY)
	if ede != nil {
		return delegationNode(ta.Owner(), Bogus, nil, ede, BogusTTL), nil
	}

	dnskeys := answers.find(ta.Owner(), dns.TypeDNSKEY)
	if dnskeys == nil {
		ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, ErrKeysNotFound.Error())
		return delegationNode(ta.Owner(), Bogus, nil, ede, BogusTTL), nil
	}

	zoneKeys := extractRecords[*dns.DNSKEY](dnskeys.rrs)

	badSigs := 0
	ede = nil

	// Try each anchor record in turn: an anchor DNSKEY must appear verbatim
	// in the fetched RRset, an anchor DS must match a fetched key's digest.
	// The first key whose covering signature verifies secures the whole set.
	for _, anchorRR := range ta.Records() {
		candidate := matchAnchorRecord(anchorRR, zoneKeys)
		if candidate == nil {
			continue
		}

		keyTag := candidate.KeyTag()
		for _, sig := range dnskeys.sigs {
			if sig.KeyTag != keyTag || !namesEqual(sig.SignerName, ta.Owner()) {
				continue
			}

			if checkSigCached(sig, candidate, dnskeys.rrs, vc.isig) {
				ttl := minDuration(MaxNodeValidity, dnskeys.minTTL())
				ttl = minDuration(ttl, ttlForSig(sig))
				return delegationNode(ta.Owner(), Secure, zoneKeys, nil, ttl), nil
			}

			// A well-formed anchor verifies on the first or second attempt;
			// key-tag collisions are rare. Anything beyond the budget is an
			// attack on our CPU, not a misconfiguration.
			badSigs++
			if badSigs > MaxBadSignatures {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errTooManyBadSigs.Error())
				return delegationNode(ta.Owner(), Bogus, nil, ede, BogusTTL), nil
			}
			if ede == nil {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "bad signature over trust anchor DNSKEY RRset")
			}
		}
	}

	if ede == nil {
		ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "no anchor record matches the DNSKEY RRset")
	}
	return delegationNode(ta.Owner(), Bogus, nil, ede, BogusTTL), nil
}

// matchAnchorRecord finds the fetched DNSKEY an anchor record vouches for:
// byte equality for a DNSKEY anchor, digest/algorithm/key-tag equality for a
// DS anchor.
func matchAnchorRecord(anchorRR dns.RR, zoneKeys []*dns.DNSKEY) *dns.DNSKEY {
	switch anchor := anchorRR.(type) {
	case *dns.DNSKEY:
		for _, k := range zoneKeys {
			if anchor.Flags == k.Flags &&
				anchor.Protocol == k.Protocol &&
				anchor.Algorithm == k.Algorithm &&
				anchor.PublicKey == k.PublicKey &&
				namesEqual(anchor.Hdr.Name, k.Hdr.Name) {
				return k
			}
		}
	case *dns.DS:
		for _, k := range zoneKeys {
			if anchor.Algorithm != k.Algorithm || anchor.KeyTag != k.KeyTag() {
				continue
			}
			if !supportedDigest(anchor.DigestType) {
				continue
			}
			if ds := k.ToDS(anchor.DigestType); ds != nil && strings.EqualFold(anchor.Digest, ds.Digest) {
				return k
			}
		}
	}
	return nil
}
