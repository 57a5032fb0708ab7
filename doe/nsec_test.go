package doe

import (
	"slices"
	"testing"

	"github.com/miekg/dns"
)

func TestNSEC_BitmapContains(t *testing.T) {

	// Assume we are querying for the AAAA record on test.example.com. It does not exist, but an A record does.
	// This also covers the common response for services using online signing for (what should be) a NXDOMAIN response.

	rrset := []*dns.NSEC{
		newRR("test.example.com. 3600 IN NSEC \000.test.example.com. A RRSIG NSEC").(*dns.NSEC),
	}

	nsec := NewNSEC(zoneName, rrset)

	nameSeen, typeSeen := nsec.BitmapContains("test.example.com.", dns.TypeA)
	if !nameSeen || !typeSeen {
		t.Error("we expect both the name and type to be seen")
	}

	nameSeen, typeSeen = nsec.BitmapContains("test.example.com.", dns.TypeAAAA)
	if !nameSeen || typeSeen {
		t.Error("we expect the name to be seen, but not the type")
	}

	nameSeen, typeSeen = nsec.BitmapContains("other.example.com.", dns.TypeA)
	if nameSeen || typeSeen {
		// The bitmap is only inspected when an NSEC owner matches the name.
		t.Error("we expect neither the name or type to be seen")
	}

}

func TestNSEC_MatchesAndCovers(t *testing.T) {

	rrset := []*dns.NSEC{
		newRR("s.example.com. 3600 IN NSEC u.example.com. A RRSIG NSEC").(*dns.NSEC),
	}

	nsec := NewNSEC(zoneName, rrset)

	if nsec.Matches("s.example.com.") == nil {
		t.Error("we expect the owner name to match")
	}
	if nsec.Matches("t.example.com.") != nil {
		t.Error("we expect a name inside the range to not match")
	}

	if nsec.Covers("t.example.com.") == nil {
		t.Error("we expect t.example.com. to be covered")
	}
	if nsec.Covers("s.example.com.") != nil {
		t.Error("the owner name itself is never covered")
	}
	if nsec.Covers("v.example.com.") != nil {
		t.Error("we expect a name past the next domain to not be covered")
	}

	//---

	// The last NSEC in the chain wraps around: its next domain is the apex.

	wrap := NewNSEC(zoneName, []*dns.NSEC{
		newRR("z.example.com. 3600 IN NSEC example.com. A RRSIG NSEC").(*dns.NSEC),
	})

	if wrap.Covers("zz.example.com.") == nil {
		t.Error("we expect the wrap-around record to cover everything after its owner")
	}

}

func TestNSEC_CoversEmptyNonTerminal(t *testing.T) {

	// The next domain being a descendant of the covered name is what marks an
	// empty non-terminal.

	rrset := []*dns.NSEC{
		newRR("example.com. 3600 IN NSEC a.sub.example.com. SOA RRSIG NSEC").(*dns.NSEC),
	}

	nsec := NewNSEC(zoneName, rrset)

	if nsec.CoversEmptyNonTerminal("sub.example.com.") == nil {
		t.Error("we expect sub.example.com. to be an empty non-terminal")
	}
	if nsec.CoversEmptyNonTerminal("other.example.com.") != nil {
		t.Error("we expect other.example.com. to not be an empty non-terminal")
	}

}

func TestNSEC_NameError(t *testing.T) {

	apex := []*dns.NSEC{
		newRR("example.com. 3600 IN NSEC d.example.com. SOA RRSIG NSEC").(*dns.NSEC),
	}
	span := []*dns.NSEC{
		newRR("s.example.com. 3600 IN NSEC u.example.com. A RRSIG NSEC").(*dns.NSEC),
	}

	nsec := NewNSEC(zoneName, slices.Concat(apex, span))

	// Both the qname and the wildcard are denied, so the proof holds.
	if !nsec.ProvesNameError("test.example.com.") {
		t.Error("we expect the name error proof to be valid")
	}

	// An NSEC record exists at the qname, so the qname exists.
	if nsec.ProvesNameError("s.example.com.") {
		t.Error("we expect the name error proof to not be valid")
	}

	//---

	// Without the apex record the wildcard is not denied, so there is no
	// name error proof, but there is a wildcard expansion proof.

	nsec = NewNSEC(zoneName, span)

	if nsec.ProvesNameError("test.example.com.") {
		t.Error("we expect the name error proof to fail without wildcard denial")
	}
	if !nsec.ProvesWildcardExpansion("test.example.com.") {
		t.Error("we expect the wildcard expansion proof to be valid")
	}

}
