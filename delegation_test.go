package validator

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegation_UnsupportedAlgorithmsAreInsecure(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// The DS RRset validates, but every record names an algorithm we cannot
	// verify. RFC 6840 section 5.2: treat the zone as unsigned.
	ds := &dns.DS{
		Hdr:        dns.RR_Header{Name: "sub.example.com.", Rrtype: dns.TypeDS, Class: dns.ClassINET, Ttl: 300},
		KeyTag:     12345,
		Algorithm:  200,
		DigestType: dns.SHA256,
		Digest:     "be74359954660069d5c63d200c39f5603827d7dd02b56f120ee9f3a86764247c",
	}
	dsSet := []dns.RR{ds}
	upstream.set("sub.example.com.", dns.TypeDS, append(dsSet, example.key.sign(dsSet, 0, 0)), nil)

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "sub.example.com.")
	require.NoError(t, err)

	assert.Equal(t, Insecure, node.ValidationState())
	if assert.NotNil(t, node.ExtendedError()) {
		assert.Equal(t, dns.ExtendedErrorCodeOther, node.ExtendedError().InfoCode)
	}

}

func TestDelegation_Nsec3OptOutIsInsecure(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// An opt-out NSEC3 covering the delegation's hash. The owner and next
	// hashes bracket the whole hash space, so any name is covered.
	nsec3Set := []dns.RR{newRR("0000000000000000000000000000000A.example.com. 300 IN NSEC3 1 1 2 ABCDEF VVVVVVVVVVVVVVVVVVVVVVVVVVVVVVV0 NS SOA RRSIG")}
	upstream.set("sub.example.com.", dns.TypeDS, nil, append(nsec3Set, example.key.sign(nsec3Set, 0, 0)))

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "sub.example.com.")
	require.NoError(t, err)

	assert.Equal(t, Insecure, node.ValidationState())

}

func TestDelegation_Nsec3WithoutOptOutIsBogus(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// The same cover without opt-out denies a name we know exists.
	nsec3Set := []dns.RR{newRR("0000000000000000000000000000000A.example.com. 300 IN NSEC3 1 0 2 ABCDEF VVVVVVVVVVVVVVVVVVVVVVVVVVVVVVV0 NS SOA RRSIG")}
	upstream.set("sub.example.com.", dns.TypeDS, nil, append(nsec3Set, example.key.sign(nsec3Set, 0, 0)))

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "sub.example.com.")
	require.NoError(t, err)

	assert.Equal(t, Bogus, node.ValidationState())

}

func TestDelegation_Nsec3IterationGuards(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// Far above Nsec3IterationsBogus: hostile, and we refuse to hash at all.
	nsec3Set := []dns.RR{newRR("0000000000000000000000000000000A.example.com. 300 IN NSEC3 1 1 5000 ABCDEF VVVVVVVVVVVVVVVVVVVVVVVVVVVVVVV0 NS SOA RRSIG")}
	upstream.set("sub.example.com.", dns.TypeDS, nil, append(nsec3Set, example.key.sign(nsec3Set, 0, 0)))

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "sub.example.com.")
	require.NoError(t, err)
	assert.Equal(t, Bogus, node.ValidationState())

	//---

	// Between the two limits the record is ignored, which leaves the missing
	// DS unproven: also Bogus, by a different route.

	nsec3Set = []dns.RR{newRR("0000000000000000000000000000000A.example.com. 300 IN NSEC3 1 1 300 ABCDEF VVVVVVVVVVVVVVVVVVVVVVVVVVVVVVV0 NS SOA RRSIG")}
	upstream.set("other.example.com.", dns.TypeDS, nil, append(nsec3Set, example.key.sign(nsec3Set, 0, 0)))

	node, err = vc.GetNode(context.Background(), "other.example.com.")
	require.NoError(t, err)
	assert.Equal(t, Bogus, node.ValidationState())
	if assert.NotNil(t, node.ExtendedError()) {
		assert.Equal(t, "no DS RRset and no proof of its absence", node.ExtendedError().ExtraText)
	}

}

func TestDelegation_MissingProofIsBogus(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// An empty NOERROR response: no DS, no denial of existence.
	upstream.set("sub.example.com.", dns.TypeDS, nil, nil)

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "sub.example.com.")
	require.NoError(t, err)

	assert.Equal(t, Bogus, node.ValidationState())
	if assert.NotNil(t, node.ExtendedError()) {
		assert.Equal(t, dns.ExtendedErrorCodeDNSBogus, node.ExtendedError().InfoCode)
	}

}

func TestDelegation_SignedCNAMEIsSecureIntermediate(t *testing.T) {

	example := newTestZone("example.com.")

	upstream := newMockExchanger()
	example.serveKeys(upstream)

	// A signed CNAME at the queried name: not a zone cut, but a secure
	// waypoint whose signer remains the parent.
	cnameSet := []dns.RR{newRR("alias.example.com. 300 IN CNAME target.example.com.")}
	upstream.set("alias.example.com.", dns.TypeDS, append(cnameSet, example.key.sign(cnameSet, 0, 0)), nil)

	vc := NewValidationContext(example.anchors(), upstream)

	node, err := vc.GetNode(context.Background(), "alias.example.com.")
	require.NoError(t, err)

	assert.Equal(t, Secure, node.ValidationState())
	assert.True(t, node.Intermediate())
	assert.Equal(t, "example.com.", node.SignerName())

}

func TestDelegation_FindKeyForDS(t *testing.T) {

	zone := testEcKey("example.com.")
	other := testEcKey("example.com.")

	found := findKeyForDS(zone.ds, []*dns.DNSKEY{other.key, zone.key})
	assert.Same(t, zone.key, found)

	assert.Nil(t, findKeyForDS(zone.ds, []*dns.DNSKEY{other.key}))

}
