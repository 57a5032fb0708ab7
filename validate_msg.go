package validator

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
	"github.com/musicinmybrain/validator/doe"
)

// ValidateMsg classifies a whole response message. Alongside the state it
// reports which denial-of-existence proof, if any, was accepted. It returns a
// hard error only for structural problems with the message itself (no
// question, or more than one); everything discovered while validating
// resolves to a ValidationState with an optional diagnostic.
func (vc *ValidationContext) ValidateMsg(ctx context.Context, msg *dns.Msg) (ValidationState, DenialOfExistenceState, *dns.EDNS0_EDE, error) {
	if msg == nil {
		return Unknown, NotFound, nil, ErrNilMessage
	}

	// Following draft-bellis-dnsop-qdcount-is-one: anything other than a
	// single question is a form error, not a validation verdict.
	if len(msg.Question) != 1 {
		return Unknown, NotFound, nil, fmt.Errorf("%w: got %d questions", ErrFormError, len(msg.Question))
	}

	trace := newTrace()
	Info(fmt.Sprintf("[%s] validating response for [%s] type [%d] rcode [%d]", trace.ShortID(), msg.Question[0].Name, msg.Question[0].Qtype, msg.Rcode))

	answers := groupRecords(msg.Answer).removeRedundantCNAMEs()
	authorities := groupRecords(msg.Ns)

	validatedAnswers, ede, err := vc.validateGroups(ctx, answers)
	if err != nil {
		return Unknown, NotFound, nil, err
	}
	if validatedAnswers == nil {
		return Bogus, NotFound, ede, nil
	}

	validatedAuthorities, ede, err := vc.validateGroups(ctx, authorities)
	if err != nil {
		return Unknown, NotFound, nil, err
	}
	if validatedAuthorities == nil {
		return Bogus, NotFound, ede, nil
	}

	qname := dns.CanonicalName(msg.Question[0].Name)
	qtype := msg.Question[0].Qtype

	// An otherwise secure answer is only as trusted as the weakest CNAME or
	// DNAME hop that produced the effective sname (RFC 1034 section 5.3.2).
	sname, maybeSecure, ede := chaseAliases(qname, qtype, validatedAnswers)
	if maybeSecure == Bogus {
		return Bogus, NotFound, ede, nil
	}

	if msg.Rcode == dns.RcodeSuccess {
		if vg := findAnswer(validatedAnswers, sname, qtype); vg != nil {
			state, ede := vc.validatePositiveAnswer(sname, vg, validatedAuthorities, maybeSecure)
			return state, NotFound, ede, nil
		}
	}

	// NODATA and NXDOMAIN both require a SOA whose signer anchors the
	// negative proof.
	soaSigner, soaState, ede := soaState(sname, validatedAuthorities)
	if soaState == Unknown {
		if ede == nil {
			ede = makeEDE(dns.ExtendedErrorCodeDNSBogus, "missing SOA record for NODATA or NXDOMAIN")
		}
		return Bogus, NotFound, ede, nil
	}
	if soaState != Secure {
		return soaState, NotFound, ede, nil
	}

	nsecSet, nsec3Set, iterationsBogus := vc.proofSets(soaSigner, validatedAuthorities)
	if iterationsBogus {
		return Bogus, NotFound, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 iteration count exceeds the acceptable maximum"), nil
	}

	var state ValidationState
	var denial DenialOfExistenceState
	switch msg.Rcode {
	case dns.RcodeSuccess:
		state, denial, ede = validateNoData(sname, qtype, nsecSet, nsec3Set, maybeSecure)
	case dns.RcodeNameError:
		state, denial, ede = validateNameError(sname, nsecSet, nsec3Set, maybeSecure)
	default:
		return Bogus, NotFound, makeEDE(dns.ExtendedErrorCodeDNSBogus, "no applicable proof for the response"), nil
	}

	Info(fmt.Sprintf("[%s] result [%s] denial [%s]", trace.ShortID(), state, denial))
	return state, denial, ede, nil
}

// validateGroups validates every group independently. A Bogus group
// short-circuits: the returned slice is nil and the diagnostic explains why.
func (vc *ValidationContext) validateGroups(ctx context.Context, groups groupSet) ([]*validatedGroup, *dns.EDNS0_EDE, error) {
	out := make([]*validatedGroup, 0, len(groups))
	for _, g := range groups {
		vg, err := g.validateWithContext(ctx, vc)
		if err != nil {
			return nil, nil, err
		}
		if vg.state == Bogus {
			return nil, vg.ede, nil
		}
		out = append(out, vg)
	}
	return out, nil, nil
}

// chaseAliases follows CNAME and DNAME records from qname to the effective
// sname, downgrading the overall state on any non-secure hop.
func chaseAliases(qname string, qtype uint16, answers []*validatedGroup) (string, ValidationState, *dns.EDNS0_EDE) {
	sname := qname
	state := Secure
	var ede *dns.EDNS0_EDE

	if qtype == dns.TypeCNAME || qtype == dns.TypeDNAME {
		return sname, state, nil
	}

	for hop := 0; hop < MaxCNAMEHops; hop++ {
		next := ""

		for _, vg := range answers {
			if vg.rtype == dns.TypeCNAME && namesEqual(vg.owner, sname) && len(vg.rrs) > 0 {
				next = dns.CanonicalName(vg.rrs[0].(*dns.CNAME).Target)
			} else if vg.rtype == dns.TypeDNAME && len(vg.rrs) > 0 && !namesEqual(vg.owner, sname) && dns.IsSubDomain(vg.owner, sname) {
				dname := vg.rrs[0].(*dns.DNAME)
				prefix := sname[:len(sname)-len(vg.owner)]
				next = dns.CanonicalName(prefix + dname.Target)
			} else {
				continue
			}

			state = mapMaybeSecure(vg.state, state)
			if vg.ede != nil && ede == nil {
				ede = vg.ede
			}
			break
		}

		if next == "" || state == Bogus {
			return sname, state, ede
		}
		sname = next
	}

	return sname, Bogus, makeEDE(dns.ExtendedErrorCodeDNSBogus, "CNAME chain too long")
}

// mapMaybeSecure keeps the downgraded state once any hop is less than secure.
func mapMaybeSecure(state, maybe ValidationState) ValidationState {
	if state == Secure {
		return maybe
	}
	return state
}

func findAnswer(answers []*validatedGroup, sname string, qtype uint16) *validatedGroup {
	for _, vg := range answers {
		if namesEqual(vg.owner, sname) && (vg.rtype == qtype || qtype == dns.TypeANY) {
			return vg
		}
	}
	return nil
}

// validatePositiveAnswer handles a direct NOERROR answer. A wildcard-expanded
// answer additionally needs proof that sname itself does not exist below the
// closest encloser, unless the query literally targeted the wildcard.
func (vc *ValidationContext) validatePositiveAnswer(sname string, vg *validatedGroup, authorities []*validatedGroup, maybeSecure ValidationState) (ValidationState, *dns.EDNS0_EDE) {
	if vg.state != Secure {
		return mapMaybeSecure(vg.state, maybeSecure), vg.ede
	}
	if vg.wildcard == "" {
		return mapMaybeSecure(Secure, maybeSecure), vg.ede
	}

	starName := "*." + vg.wildcard
	if namesEqual(sname, starName) {
		// The query was for the wildcard itself; nothing more to prove.
		return mapMaybeSecure(Secure, maybeSecure), vg.ede
	}

	nsecSet, nsec3Set, iterationsBogus := vc.proofSets(vg.signer, authorities)
	if iterationsBogus {
		return Bogus, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC3 iteration count exceeds the acceptable maximum")
	}

	if !nsecSet.Empty() && nsecSet.ProvesWildcardExpansion(sname) {
		return mapMaybeSecure(Secure, maybeSecure), nil
	}
	if !nsec3Set.Empty() {
		for _, sig := range vg.sigs {
			if nsec3Set.ProvesWildcardExpansion(sig.Hdr.Name, sig.Labels) {
				return mapMaybeSecure(Secure, maybeSecure), nil
			}
		}
	}

	return Bogus, makeEDE(dns.ExtendedErrorCodeDNSBogus, "wildcard expansion without proof that the name does not exist")
}

// validateNoData proves that sname exists but qtype does not, trying in
// order: NSEC nodata, NSEC wildcard nodata, NSEC3 nodata, and NSEC3
// non-existence followed by a wildcard NSEC3 nodata.
func validateNoData(sname string, qtype uint16, nsecSet *doe.NSEC, nsec3Set *doe.NSEC3, maybeSecure ValidationState) (ValidationState, DenialOfExistenceState, *dns.EDNS0_EDE) {
	if !nsecSet.Empty() {
		if nameSeen, typeSeen := nsecSet.BitmapContains(sname, qtype, dns.TypeCNAME); nameSeen && !typeSeen {
			return mapMaybeSecure(Secure, maybeSecure), NsecNoData, nil
		}

		// The name may not exist at all, with a wildcard that lacks qtype.
		if nsecSet.Covers(sname) != nil {
			for ancestor := parentName(sname); ; ancestor = parentName(ancestor) {
				if nameSeen, typeSeen := nsecSet.BitmapContains("*."+ancestor, qtype, dns.TypeCNAME); nameSeen && !typeSeen {
					return mapMaybeSecure(Secure, maybeSecure), NsecWildcard, nil
				}
				if ancestor == "." {
					break
				}
			}
		}
	}

	if !nsec3Set.Empty() {
		if nameSeen, typeSeen := nsec3Set.BitmapContains(sname, qtype, dns.TypeCNAME); nameSeen && !typeSeen {
			return mapMaybeSecure(Secure, maybeSecure), Nsec3NoData, nil
		}

		// RFC 5155 section 8.7: prove sname does not exist, then show the
		// wildcard at the closest encloser lacks both qtype and CNAME.
		if ce, nextCloser, found := nsec3Set.ClosestEncloser(sname); found {
			if covered, optOut := nsec3Set.Covers(nextCloser); covered != nil {
				if optOut {
					// Something may exist in the covered range; insecure is
					// the strongest possible conclusion.
					return Insecure, Nsec3OptOut, nil
				}
				if nameSeen, typeSeen := nsec3Set.BitmapContains("*."+ce, qtype, dns.TypeCNAME); nameSeen && !typeSeen {
					return mapMaybeSecure(Secure, maybeSecure), Nsec3Wildcard, nil
				}
			}
		}
	}

	return Bogus, NotFound, makeEDE(dns.ExtendedErrorCodeDNSBogus, "no NSEC/NSEC3 proof for NODATA")
}

// validateNameError proves NXDOMAIN: NSEC first, NSEC3 second. An NSEC that
// matches sname exactly contradicts the rcode and is Bogus; an NSEC3 opt-out
// cover downgrades the proof to Insecure.
func validateNameError(sname string, nsecSet *doe.NSEC, nsec3Set *doe.NSEC3, maybeSecure ValidationState) (ValidationState, DenialOfExistenceState, *dns.EDNS0_EDE) {
	if !nsecSet.Empty() {
		if nsecSet.Matches(sname) != nil {
			return Bogus, NotFound, makeEDE(dns.ExtendedErrorCodeDNSBogus, "NSEC proves the name exists despite NXDOMAIN")
		}
		if nsecSet.ProvesNameError(sname) {
			return mapMaybeSecure(Secure, maybeSecure), NsecNxDomain, nil
		}
	}

	if !nsec3Set.Empty() {
		if proved, optOut := nsec3Set.ProvesNameError(sname); proved {
			if optOut {
				return Insecure, Nsec3OptOut, nil
			}
			return mapMaybeSecure(Secure, maybeSecure), Nsec3NxDomain, nil
		}
	}

	return Bogus, NotFound, makeEDE(dns.ExtendedErrorCodeDNSBogus, "no NSEC/NSEC3 proof for non-existence")
}

// soaState locates the SOA group enclosing sname and returns its signer and
// state. Unknown means no SOA was found at all.
func soaState(sname string, authorities []*validatedGroup) (string, ValidationState, *dns.EDNS0_EDE) {
	for _, vg := range authorities {
		if vg.rtype != dns.TypeSOA {
			continue
		}
		if !dns.IsSubDomain(vg.owner, sname) {
			continue
		}
		return vg.signer, vg.state, vg.ede
	}
	return "", Unknown, nil
}

// proofSets collects the NSEC and NSEC3 records from secure authority groups
// signed by the expected signer. iterationsBogus is set when an otherwise
// valid NSEC3 record demands more iterations than we are willing to compute.
func (vc *ValidationContext) proofSets(signer string, authorities []*validatedGroup) (*doe.NSEC, *doe.NSEC3, bool) {
	var nsecRecords []*dns.NSEC
	var nsec3Records []*dns.NSEC3

	for _, vg := range authorities {
		if vg.state != Secure || !namesEqual(vg.signer, signer) {
			continue
		}

		switch vg.rtype {
		case dns.TypeNSEC:
			nsecRecords = append(nsecRecords, extractRecords[*dns.NSEC](vg.rrs)...)
		case dns.TypeNSEC3:
			for _, rr := range extractRecords[*dns.NSEC3](vg.rrs) {
				if rr.Iterations > Nsec3IterationsBogus {
					return nil, nil, true
				}
				if rr.Iterations > Nsec3IterationsInsecure {
					continue
				}
				nsec3Records = append(nsec3Records, rr)
			}
		}
	}

	return doe.NewNSEC(signer, nsecRecords), doe.NewNSEC3(signer, vc.nsec3Hashes.hash, nsec3Records), false
}
