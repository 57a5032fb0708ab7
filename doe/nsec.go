package doe

import (
	"slices"

	"github.com/miekg/dns"
)

// Matches returns the NSEC whose owner name equals name, if any.
func (d *NSEC) Matches(name string) *dns.NSEC {
	name = dns.CanonicalName(name)
	for _, nsec := range d.records {
		if dns.CanonicalName(nsec.Header().Name) == name {
			return nsec
		}
	}
	return nil
}

// Covers returns an NSEC proving that name does not exist: the name sorts
// strictly between the record's owner and its next domain.
//
// https://datatracker.ietf.org/doc/html/rfc3845#section-2.1.1
// The next domain of the last NSEC in the zone wraps around to the apex.
func (d *NSEC) Covers(name string) *dns.NSEC {
	name = dns.CanonicalName(name)

	for _, nsec := range d.records {
		afterOwner := compareNames(nsec.Header().Name, name) < 0
		beforeNext := dns.CanonicalName(nsec.NextDomain) == d.zone || compareNames(name, nsec.NextDomain) < 0

		if afterOwner && beforeNext {
			return nsec
		}
	}
	return nil
}

// CoversEmptyNonTerminal returns an NSEC covering name whose next domain is a
// descendant of name. The prefix relationship is what distinguishes an empty
// non-terminal from a name that simply does not exist.
func (d *NSEC) CoversEmptyNonTerminal(name string) *dns.NSEC {
	name = dns.CanonicalName(name)

	for _, nsec := range d.records {
		afterOwner := compareNames(nsec.Header().Name, name) < 0
		beforeNext := compareNames(name, nsec.NextDomain) < 0

		if afterOwner && beforeNext && dns.IsSubDomain(name, nsec.NextDomain) {
			return nsec
		}
	}
	return nil
}

// CoversWildcard returns an NSEC proving the non-existence of the wildcard
// that could have synthesised name.
func (d *NSEC) CoversWildcard(name string) *dns.NSEC {
	return d.Covers(wildcardName(dns.CanonicalName(name)))
}

// ProvesNameError reports a full NXDOMAIN proof for name: both the name
// itself and the covering wildcard are proven absent.
func (d *NSEC) ProvesNameError(name string) bool {
	return !d.Empty() && d.Covers(name) != nil && d.CoversWildcard(name) != nil
}

// ProvesWildcardExpansion reports that name itself does not exist while no
// proof denies the wildcard, which is the shape expected alongside a
// wildcard-expanded answer.
func (d *NSEC) ProvesWildcardExpansion(name string) bool {
	return !d.Empty() && d.Covers(name) != nil && d.CoversWildcard(name) == nil
}

// BitmapContains reports whether an NSEC exists at name, and if so whether
// its type bitmap holds any of the given types.
func (d *NSEC) BitmapContains(name string, types ...uint16) (nameSeen, typeSeen bool) {
	for _, nsec := range d.records {
		if !namesEqualNSEC(nsec.Header().Name, name) {
			continue
		}

		nameSeen = true
		for _, t := range types {
			if slices.Contains(nsec.TypeBitMap, t) {
				return nameSeen, true
			}
		}
	}
	return nameSeen, false
}

func namesEqualNSEC(a, b string) bool {
	return dns.CanonicalName(a) == dns.CanonicalName(b)
}
