package validator

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

const DnskeyFlagCsk = 257

//---

func newRR(s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		panic(err)
	}
	return rr
}

//---

// mockExchanger answers queries from a fixed table keyed on name and type.
// Every query made is recorded so tests can assert on cache behaviour.
type mockExchanger struct {
	responses map[string]*dns.Msg
	queries   []string
}

func newMockExchanger() *mockExchanger {
	return &mockExchanger{responses: map[string]*dns.Msg{}}
}

func exchangeKey(name string, rtype uint16) string {
	return fmt.Sprintf("%s/%s", dns.CanonicalName(name), dns.TypeToString[rtype])
}

func (m *mockExchanger) set(name string, rtype uint16, answer, authority []dns.RR) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.CanonicalName(name), rtype)
	msg.Response = true
	msg.Answer = answer
	msg.Ns = authority
	m.responses[exchangeKey(name, rtype)] = msg
}

func (m *mockExchanger) Exchange(_ context.Context, msg *dns.Msg) (*dns.Msg, error) {
	key := exchangeKey(msg.Question[0].Name, msg.Question[0].Qtype)
	m.queries = append(m.queries, key)

	response, found := m.responses[key]
	if !found {
		return nil, fmt.Errorf("no mock response for %s", key)
	}

	out := response.Copy()
	out.Id = msg.Id
	return out, nil
}

//---

type testKey struct {
	key    *dns.DNSKEY
	ds     *dns.DS
	signer crypto.Signer
}

func testEcKey(owner string) *testKey {
	dnskey := &dns.DNSKEY{
		Hdr: dns.RR_Header{
			Name:   dns.CanonicalName(owner),
			Rrtype: dns.TypeDNSKEY,
			Class:  dns.ClassINET,
			Ttl:    300,
		},
		Flags:     DnskeyFlagCsk,
		Protocol:  3,
		Algorithm: dns.ECDSAP256SHA256,
	}
	secret, err := dnskey.Generate(256)
	if err != nil {
		panic(err)
	}
	signer, _ := secret.(*ecdsa.PrivateKey)
	return &testKey{
		ds:     dnskey.ToDS(dns.SHA256),
		key:    dnskey,
		signer: signer,
	}
}

func testRsaKey(owner string) *testKey {
	dnskey := &dns.DNSKEY{
		Hdr: dns.RR_Header{
			Name:   dns.CanonicalName(owner),
			Rrtype: dns.TypeDNSKEY,
			Class:  dns.ClassINET,
			Ttl:    300,
		},
		Flags:     DnskeyFlagCsk,
		Protocol:  3,
		Algorithm: dns.RSASHA256,
	}
	secret, err := dnskey.Generate(2048)
	if err != nil {
		panic(err)
	}
	signer, _ := secret.(*rsa.PrivateKey)
	return &testKey{
		ds:     dnskey.ToDS(dns.SHA256),
		key:    dnskey,
		signer: signer,
	}
}

func (k *testKey) sign(rrset []dns.RR, inception, expiration int64) *dns.RRSIG {
	if inception == 0 {
		inception = time.Now().Add(time.Hour * -24).Unix()
	}
	if expiration == 0 {
		expiration = time.Now().Add(time.Hour * 24).Unix()
	}
	// Sign fills OrigTtl from the RRset but leaves the header TTL alone,
	// and a zero header TTL would poison every validity calculation.
	rrsig := &dns.RRSIG{
		Hdr:        dns.RR_Header{Ttl: rrset[0].Header().Ttl},
		Inception:  uint32(inception),
		Expiration: uint32(expiration),
		KeyTag:     k.key.KeyTag(),
		SignerName: k.key.Header().Name,
		Algorithm:  k.key.Algorithm,
	}
	err := rrsig.Sign(k.signer, rrset)
	if err != nil {
		panic(err)
	}
	return rrsig
}

//---

// testZone wires a signed zone into a mockExchanger: the DNSKEY RRset signed
// by its own key, and a DS RRset served by the parent.
type testZone struct {
	name string
	key  *testKey
}

func newTestZone(name string) *testZone {
	return &testZone{name: dns.CanonicalName(name), key: testEcKey(name)}
}

// serveKeys publishes the zone's signed DNSKEY RRset.
func (z *testZone) serveKeys(m *mockExchanger) {
	keys := []dns.RR{z.key.key}
	m.set(z.name, dns.TypeDNSKEY, append(keys, z.key.sign(keys, 0, 0)), nil)
}

// serveDS publishes the zone's DS RRset, signed by the parent.
func (z *testZone) serveDS(m *mockExchanger, parent *testZone) {
	z.key.ds.Hdr = dns.RR_Header{
		Name:   z.name,
		Rrtype: dns.TypeDS,
		Class:  dns.ClassINET,
		Ttl:    300,
	}
	set := []dns.RR{z.key.ds}
	m.set(z.name, dns.TypeDS, append(set, parent.key.sign(set, 0, 0)), nil)
}

// anchors returns a trust anchor set containing this zone's DS record.
func (z *testZone) anchors() *TrustAnchors {
	z.key.ds.Hdr = dns.RR_Header{
		Name:   z.name,
		Rrtype: dns.TypeDS,
		Class:  dns.ClassINET,
		Ttl:    300,
	}
	ta, err := NewTrustAnchor(z.key.ds)
	if err != nil {
		panic(err)
	}
	return NewTrustAnchors(ta)
}
