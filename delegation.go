package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// createChildNode resolves one delegation step: given the validated parent
// signer, it determines the signing state at name. It never returns an error;
// anything wrong with the infrastructure responses becomes a Bogus node so
// one bad branch cannot poison the caller.
func (vc *ValidationContext) createChildNode(ctx context.Context, name string, parent *Node) *Node {
	name = dns.CanonicalName(name)
	Debug(fmt.Sprintf("create child node for [%s] under [%s]", name, parent.SignerName()))

	answers, authorities, ede := vc.requestAsGroups(ctx, name, dns.TypeDS)
	if ede != nil {
		return delegationNode(name, Bogus, nil, ede, BogusTTL)
	}

	// Every TTL and signature validity that contributes to the child state
	// also bounds it, starting with the parent's own remaining lifetime.
	parentTTL := parent.TTL()

	dsGroup := answers.firstOfType(dns.TypeDS)
	if dsGroup == nil {
		return vc.childNodeWithoutDS(name, parent, parentTTL, answers, authorities)
	}
	if !namesEqual(dsGroup.owner, name) {
		ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "DS RRset owner does not match the queried name")
		return delegationNode(name, Bogus, nil, ede, BogusTTL)
	}

	ttl := minDuration(parentTTL, dsGroup.minTTL())

	state, _, ede, sigTTL := dsGroup.validateWithNode(parent, vc.isig)
	ttl = minDuration(ttl, sigTTL)
	if state != Secure {
		if ede == nil {
			ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "DS RRset did not validate against the parent keys")
		}
		return delegationNode(name, Bogus, nil, ede, ttl)
	}

	// RFC 4035 section 5.2 / RFC 6840 section 5.2: authenticated DS records
	// with unknown or unsupported algorithms or digests are disregarded. If
	// none remain the zone is treated as if it were unsigned - an insecure
	// delegation, never a forgery.
	supported := make([]*dns.DS, 0, len(dsGroup.rrs))
	for _, ds := range extractRecords[*dns.DS](dsGroup.rrs) {
		if supportedAlgorithm(ds.Algorithm) && supportedDigest(ds.DigestType) {
			supported = append(supported, ds)
		}
	}
	if len(supported) == 0 {
		ede = makeEDE(dns.ExtendedErrorCodeOther, "no supported algorithm in DS RRset")
		return delegationNode(name, Insecure, nil, ede, ttl)
	}

	return vc.childNodeFromDS(ctx, name, supported, ttl)
}

// childNodeWithoutDS handles the no-DS-in-answer branches: a signed CNAME at
// the name, an NSEC proof of DS absence, an NSEC3 proof of DS absence, and
// finally Bogus. A secure parent with no DS and no valid non-existence proof
// is an attack signal, never downgraded to insecure.
func (vc *ValidationContext) childNodeWithoutDS(name string, parent *Node, parentTTL time.Duration, answers, authorities groupSet) *Node {
	// The queried non-terminal may hold a CNAME. A validly signed CNAME at
	// exactly this name makes it a secure intermediate node.
	if cnameGroup := answers.find(name, dns.TypeCNAME); cnameGroup != nil {
		ttl := minDuration(parentTTL, cnameGroup.minTTL())

		state, _, ede, sigTTL := cnameGroup.validateWithNode(parent, vc.isig)
		ttl = minDuration(ttl, sigTTL)

		if state == Secure {
			return intermediateNode(Secure, parent.SignerName(), nil, ttl)
		}
		if ede == nil {
			ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "CNAME at delegation point did not validate")
		}
		return delegationNode(name, Bogus, nil, ede, ttl)
	}

	state, ttl, ede := vc.nsecForDS(name, authorities, parent)
	switch state {
	case proofInsecureDelegation:
		// An insecure delegation is normal enough that it needs no diagnostic.
		return delegationNode(name, Insecure, nil, ede, minDuration(parentTTL, ttl))
	case proofSecureIntermediate:
		return intermediateNode(Secure, parent.SignerName(), ede, minDuration(parentTTL, ttl))
	case proofBogus:
		return delegationNode(name, Bogus, nil, ede, minDuration(parentTTL, ttl))
	}

	state, ttl, ede = vc.nsec3ForDS(name, authorities, parent)
	switch state {
	case proofInsecureDelegation:
		return delegationNode(name, Insecure, nil, ede, minDuration(parentTTL, ttl))
	case proofSecureIntermediate:
		return intermediateNode(Secure, parent.SignerName(), ede, minDuration(parentTTL, ttl))
	case proofBogus:
		return delegationNode(name, Bogus, nil, ede, minDuration(parentTTL, ttl))
	}

	ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "no DS RRset and no proof of its absence")
	return delegationNode(name, Bogus, nil, ede, minDuration(parentTTL, ttl))
}

// childNodeFromDS fetches the child's DNSKEY RRset and links it to the
// validated DS records: a DS must match a key's digest, and that key must
// have made a verifiable signature over the child DNSKEY RRset.
func (vc *ValidationContext) childNodeFromDS(ctx context.Context, name string, supported []*dns.DS, ttl time.Duration) *Node {
	answers, _, ede := vc.requestAsGroups(ctx, name, dns.TypeDNSKEY)
	if ede != nil {
		return delegationNode(name, Bogus, nil, ede, BogusTTL)
	}

	dnskeyGroup := answers.find(name, dns.TypeDNSKEY)
	if dnskeyGroup == nil {
		ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, ErrKeysNotFound.Error())
		return delegationNode(name, Bogus, nil, ede, BogusTTL)
	}

	ttl = minDuration(ttl, dnskeyGroup.minTTL())
	zoneKeys := extractRecords[*dns.DNSKEY](dnskeyGroup.rrs)

	badSigs := 0
	for _, ds := range supported {
		key := findKeyForDS(ds, zoneKeys)
		if key == nil {
			continue
		}

		keyTag := key.KeyTag()
		for _, sig := range dnskeyGroup.sigs {
			if sig.KeyTag != keyTag || !namesEqual(sig.SignerName, name) {
				continue
			}

			if checkSigCached(sig, key, dnskeyGroup.rrs, vc.isig) {
				ttl = minDuration(ttl, ttlForSig(sig))
				return delegationNode(name, Secure, zoneKeys, nil, ttl)
			}

			// Same failure budget as the trust anchor path: a DNSKEY RRset
			// and its RRSIGs are self-contained, so failures beyond a rare
			// key-tag collision mean someone is burning our CPU.
			badSigs++
			if badSigs > MaxBadSignatures {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errTooManyBadSigs.Error())
				return delegationNode(name, Bogus, nil, ede, ttl)
			}
		}
	}

	ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "no DNSKEY matches the DS RRset")
	return delegationNode(name, Bogus, nil, ede, ttl)
}

// findKeyForDS returns the DNSKEY whose digest under the DS digest type
// matches the DS record.
func findKeyForDS(ds *dns.DS, keys []*dns.DNSKEY) *dns.DNSKEY {
	for _, key := range keys {
		if key.Algorithm != ds.Algorithm || key.KeyTag() != ds.KeyTag {
			continue
		}
		if computed := key.ToDS(ds.DigestType); computed != nil && strings.EqualFold(computed.Digest, ds.Digest) {
			return key
		}
	}
	return nil
}
