package doe

import (
	"slices"
	"strings"

	"github.com/miekg/dns"
)

func (d *NSEC3) hashFor(rr *dns.NSEC3, name string) string {
	return strings.ToUpper(d.hash(name, rr.Hash, rr.Iterations, rr.Salt))
}

func ownerHash(rr *dns.NSEC3) string {
	labelIndexes := dns.Split(rr.Header().Name)
	if len(labelIndexes) < 2 {
		return ""
	}
	return strings.ToUpper(rr.Header().Name[:labelIndexes[1]-1])
}

func (d *NSEC3) matches(rr *dns.NSEC3, name string) bool {
	return ownerHash(rr) == d.hashFor(rr, name)
}

// covers reports whether name's hash falls strictly between the record's
// owner hash and its next-owner pointer. Base32hex preserves hash ordering,
// so the comparison is on the presentation strings. The last record in the
// chain wraps around: its next-owner sorts before (or equal to) its owner.
func (d *NSEC3) covers(rr *dns.NSEC3, name string) bool {
	hash := d.hashFor(rr, name)
	owner := ownerHash(rr)
	next := strings.ToUpper(rr.NextDomain)

	if owner == "" || hash == owner || hash == next {
		return false
	}
	if owner < next {
		return owner < hash && hash < next
	}
	// Wrap-around record.
	return hash > owner || hash < next
}

// fromZone checks the record was served from the zone being proven, not from
// some deeper or unrelated zone an attacker controls.
func (d *NSEC3) fromZone(rr *dns.NSEC3) bool {
	labelIndexes := dns.Split(rr.Header().Name)
	if len(labelIndexes) < 2 {
		return false
	}
	return dns.CanonicalName(rr.Header().Name[labelIndexes[1]:]) == d.zone
}

// Matches returns the NSEC3 whose owner hash equals the hash of name, if any.
func (d *NSEC3) Matches(name string) *dns.NSEC3 {
	for _, rr := range d.records {
		if d.fromZone(rr) && d.matches(rr, name) {
			return rr
		}
	}
	return nil
}

// Covers returns an NSEC3 whose range covers the hash of name, along with the
// record's opt-out flag.
func (d *NSEC3) Covers(name string) (rr *dns.NSEC3, optOut bool) {
	for _, candidate := range d.records {
		if d.fromZone(candidate) && d.covers(candidate, name) {
			return candidate, candidate.Flags&0x01 != 0
		}
	}
	return nil, false
}

// BitmapContains reports whether an NSEC3 matches name, and if so whether its
// type bitmap holds any of the given types.
func (d *NSEC3) BitmapContains(name string, types ...uint16) (nameSeen, typeSeen bool) {
	for _, rr := range d.records {
		if !d.fromZone(rr) || !d.matches(rr, name) {
			continue
		}

		nameSeen = true
		for _, t := range types {
			if slices.Contains(rr.TypeBitMap, t) {
				return nameSeen, true
			}
		}
	}
	return nameSeen, false
}

// ClosestEncloser finds the longest existing ancestor of qname proven by a
// matching NSEC3 record, and the "next closer" name one label below it.
//
// https://datatracker.ietf.org/doc/html/rfc7129#section-5.5
// The resolver keeps hashing increasingly shorter names from the query name
// until an owner name of an NSEC3 matches; that owner is the closest
// encloser.
func (d *NSEC3) ClosestEncloser(qname string) (closestEncloser, nextCloser string, found bool) {
	qname = dns.CanonicalName(qname)

	type contender struct {
		ce  string
		ncn string
	}
	contenders := make([]contender, 0, 3)

	for _, rr := range d.records {
		if !d.fromZone(rr) {
			continue
		}

		last := 0
		for _, i := range dns.Split(qname) {
			name := qname[i:]

			if !dns.IsSubDomain(d.zone, name) {
				break
			}

			if d.matches(rr, name) {
				// The matching record must be from the proper side of any
				// zone cut: a DNAME, or NS without SOA, means the server
				// is denying names it is not authoritative for.
				if slices.Contains(rr.TypeBitMap, dns.TypeDNAME) {
					continue
				}
				if slices.Contains(rr.TypeBitMap, dns.TypeNS) && !slices.Contains(rr.TypeBitMap, dns.TypeSOA) {
					continue
				}

				contenders = append(contenders, contender{ce: name, ncn: qname[last:]})
				break
			}
			last = i
		}
	}

	if len(contenders) == 0 {
		return "", "", false
	}

	winner := contenders[0]
	for _, c := range contenders[1:] {
		if len(c.ce) > len(winner.ce) {
			winner = c
		}
	}
	return winner.ce, winner.ncn, true
}

// ProvesNameError reports a full NXDOMAIN proof for qname: a closest encloser
// exists, the next closer name is covered, and the wildcard at the closest
// encloser is denied. optOut reports that the covering record opted out, in
// which case the denial is only provisional.
func (d *NSEC3) ProvesNameError(qname string) (proved, optOut bool) {
	ce, nextCloser, found := d.ClosestEncloser(qname)
	if !found {
		return false, false
	}

	if d.Matches("*."+ce) != nil {
		return false, false
	}
	wildcardCovered, _ := d.Covers("*." + ce)

	nextCloserCovered, nextCloserOptOut := d.Covers(nextCloser)
	if nextCloserCovered == nil {
		return false, false
	}

	return wildcardCovered != nil, nextCloserOptOut
}

// ProvesWildcardExpansion validates a wildcard-expanded answer per RFC 5155
// section 8.8: the RRSIG labels field names the closest encloser, and an
// NSEC3 must cover the next closer name, proving qname itself did not exist.
func (d *NSEC3) ProvesWildcardExpansion(signatureOwner string, signatureLabels uint8) bool {
	labelIndexes := dns.Split(signatureOwner)
	closestEncloserIndex := len(labelIndexes) - int(signatureLabels)
	if closestEncloserIndex < 1 || closestEncloserIndex >= len(labelIndexes) {
		return false
	}

	closestEncloser := signatureOwner[labelIndexes[closestEncloserIndex]:]
	nextCloser := signatureOwner[labelIndexes[closestEncloserIndex-1]:]

	// The wildcard itself must not be denied: it generated the answer.
	if d.Matches("*."+closestEncloser) != nil {
		return false
	}
	if covered, _ := d.Covers("*." + closestEncloser); covered != nil {
		return false
	}

	covered, _ := d.Covers(nextCloser)
	return covered != nil
}
