package validator

import (
	"context"
	"time"

	"github.com/miekg/dns"
)

// group holds the RRs sharing {owner, type, class}, plus the RRSIG records
// covering them.
type group struct {
	owner string
	rtype uint16
	class uint16

	rrs  []dns.RR
	sigs []*dns.RRSIG
}

type groupSet []*group

// validatedGroup is a group annotated with the outcome of validation.
type validatedGroup struct {
	*group

	state  ValidationState
	signer string

	// wildcard holds the closest encloser when the RRset was synthesised by
	// wildcard expansion, derived from the RRSIG labels field.
	wildcard string

	ede *dns.EDNS0_EDE
}

// groupRecords partitions a message section. RRSIGs are attached to the group
// of the type they cover; OPT records are not data and are skipped.
func groupRecords(rrs []dns.RR) groupSet {
	type key struct {
		owner string
		rtype uint16
		class uint16
	}

	index := make(map[key]*group, len(rrs))
	set := make(groupSet, 0, len(rrs))

	for _, rr := range rrs {
		hdr := rr.Header()
		if hdr.Rrtype == dns.TypeOPT {
			continue
		}

		effective := hdr.Rrtype
		if rrsig, ok := rr.(*dns.RRSIG); ok {
			effective = rrsig.TypeCovered
		}

		k := key{
			owner: dns.CanonicalName(hdr.Name),
			rtype: effective,
			class: hdr.Class,
		}

		g, found := index[k]
		if !found {
			g = &group{
				owner: k.owner,
				rtype: k.rtype,
				class: k.class,
			}
			index[k] = g
			set = append(set, g)
		}

		if rrsig, ok := rr.(*dns.RRSIG); ok {
			g.sigs = append(g.sigs, rrsig)
		} else {
			g.rrs = append(g.rrs, rr)
		}
	}

	return set
}

func (g *group) signed() bool {
	return len(g.sigs) > 0
}

func (g *group) minTTL() time.Duration {
	ttl := MaxNodeValidity
	for _, rr := range g.rrs {
		ttl = minDuration(ttl, ttlToDuration(rr.Header().Ttl))
	}
	for _, sig := range g.sigs {
		ttl = minDuration(ttl, ttlToDuration(sig.Hdr.Ttl))
	}
	return ttl
}

func (gs groupSet) find(owner string, rtype uint16) *group {
	owner = dns.CanonicalName(owner)
	for _, g := range gs {
		if g.rtype == rtype && g.owner == owner {
			return g
		}
	}
	return nil
}

func (gs groupSet) firstOfType(rtype uint16) *group {
	for _, g := range gs {
		if g.rtype == rtype {
			return g
		}
	}
	return nil
}

// removeRedundantCNAMEs drops unsigned CNAME groups that sit under a DNAME in
// the same section. Such CNAMEs are synthesised by the server and carry no
// authentication of their own; the DNAME is what gets validated.
func (gs groupSet) removeRedundantCNAMEs() groupSet {
	out := make(groupSet, 0, len(gs))
	for _, g := range gs {
		if g.rtype == dns.TypeCNAME && !g.signed() {
			synthesised := false
			for _, d := range gs {
				if d.rtype == dns.TypeDNAME && g.owner != d.owner && dns.IsSubDomain(d.owner, g.owner) {
					synthesised = true
					break
				}
			}
			if synthesised {
				continue
			}
		}
		out = append(out, g)
	}
	return out
}

// closestEncloserFromSig returns the name implied by the RRSIG labels field
// when the covered RRset was expanded from a wildcard, or "" when it was not.
func closestEncloserFromSig(sig *dns.RRSIG) string {
	owner := sig.Hdr.Name
	labelIndexes := dns.Split(owner)
	if len(labelIndexes) <= int(sig.Labels) {
		return ""
	}
	if sig.Labels == 0 {
		return "."
	}
	return owner[labelIndexes[len(labelIndexes)-int(sig.Labels)]:]
}

// checkSigCached verifies one signature over one RRset with one key,
// memoizing the outcome. This is the only place raw signature verification
// happens, so the caches bound all cryptographic work.
func checkSigCached(sig *dns.RRSIG, key *dns.DNSKEY, rrset []dns.RR, cache *sigCache) bool {
	k := sigCacheKey(sig, key, rrset)
	if verified, found := cache.lookup(k); found {
		return verified
	}

	verified := sig.Verify(key, rrset) == nil
	cache.store(k, verified)
	return verified
}

// validateWithNode validates the group's RRset against the keys held by a
// Secure node. It returns the resulting state, the wildcard closest encloser
// (if the set was expanded from a wildcard), a diagnostic, and the TTL bound
// contributed by the RRset and the verified signature.
//
// Verification work is bounded: once more than MaxBadSignatures verification
// attempts have failed the group is declared Bogus without trying further
// keys, defeating KeyTrap-style CPU exhaustion.
func (g *group) validateWithNode(node *Node, cache *sigCache) (ValidationState, string, *dns.EDNS0_EDE, time.Duration) {
	ttl := g.minTTL()

	if !g.signed() {
		return Bogus, "", makeEDE(dns.ExtendedErrorCodeDNSBogus, "RRset has no covering RRSIG"), ttl
	}

	keys := node.Keys()
	if len(keys) == 0 {
		return Bogus, "", makeEDE(dns.ExtendedErrorCodeDNSBogus, "signer node holds no keys"), ttl
	}

	badSigs := 0
	verifiedSeen := false
	allVerified := true
	wildcard := ""
	var ede *dns.EDNS0_EDE

	for _, sig := range g.sigs {
		sigVerified := false

		if !namesEqual(sig.SignerName, node.SignerName()) {
			allVerified = false
			if ede == nil {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errSignerNameMismatch.Error())
			}
			continue
		}

		if dns.CountLabel(sig.Hdr.Name) < int(sig.Labels) {
			allVerified = false
			if ede == nil {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errInvalidLabelCount.Error())
			}
			continue
		}

		if !sig.ValidityPeriod(time.Now()) {
			allVerified = false
			if ede == nil {
				ede = makeEDE(dns.ExtendedErrorCodeSignatureExpired, errInvalidTime.Error())
			}
			continue
		}

		for _, key := range keys {

			// https://datatracker.ietf.org/doc/html/rfc4035#section-5.3.1
			// More than one DNSKEY RR can match the algorithm, key tag and
			// signer name of a signature. Each matching key must be tried
			// until one verifies - within the failure budget below.

			if key.Algorithm != sig.Algorithm || key.KeyTag() != sig.KeyTag || !namesEqual(key.Header().Name, sig.SignerName) {
				continue
			}

			if checkSigCached(sig, key, g.rrs, cache) {
				sigVerified = true
				verifiedSeen = true

				if ce := closestEncloserFromSig(sig); ce != "" && !namesEqual(ce, sig.Hdr.Name) {
					wildcard = ce
				}

				ttl = minDuration(ttl, ttlForSig(sig))
				break
			}

			badSigs++
			if badSigs > MaxBadSignatures {
				return Bogus, "", makeEDE(dns.ExtendedErrorCodeDNSBogus, errTooManyBadSigs.Error()), ttl
			}
		}

		if !sigVerified {
			allVerified = false
			if ede == nil {
				ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errVerifyFailed.Error())
			}
		}
	}

	if verifiedSeen && (!RequireAllSignaturesValid || allVerified) {
		return Secure, wildcard, nil, ttl
	}

	if ede == nil {
		ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, errNoSignature.Error())
	}
	return Bogus, "", ede, ttl
}

// validateWithContext resolves the group's signer through the chain walk and
// then validates the group against the signer's node, using the user-query
// signature cache. Unsigned groups take the state of the zone they sit in:
// an insecure zone legitimately serves unsigned data, a secure zone doing so
// is Bogus.
func (g *group) validateWithContext(ctx context.Context, vc *ValidationContext) (*validatedGroup, error) {
	if !g.signed() {
		node, err := vc.GetNode(ctx, g.owner)
		if err != nil {
			return nil, err
		}

		state := node.ValidationState()
		ede := node.ExtendedError()
		if state == Secure {
			state = Bogus
			ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "RRset in a signed zone has no covering RRSIG")
		}
		return &validatedGroup{group: g, state: state, signer: node.SignerName(), ede: ede}, nil
	}

	signer := dns.CanonicalName(g.sigs[0].SignerName)
	if !dns.IsSubDomain(signer, g.owner) {
		ede := makeEDE(dns.ExtendedErrorCodeDNSBogus, "rrsig signer name is not an ancestor of the rrset owner")
		return &validatedGroup{group: g, state: Bogus, signer: signer, ede: ede}, nil
	}

	node, err := vc.GetNode(ctx, signer)
	if err != nil {
		return nil, err
	}

	if node.ValidationState() != Secure {
		return &validatedGroup{group: g, state: node.ValidationState(), signer: signer, ede: node.ExtendedError()}, nil
	}

	state, wildcard, ede, _ := g.validateWithNode(node, vc.usig)
	return &validatedGroup{group: g, state: state, signer: signer, wildcard: wildcard, ede: ede}, nil
}
