package validator

import (
	"fmt"

	"github.com/miekg/dns"
	"github.com/nsmithuk/dnssec-root-anchors-go/anchors"
)

// TrustAnchor is a set of DNSKEY and/or DS records at a single owner name that
// are trusted axiomatically.
type TrustAnchor struct {
	owner   string
	records []dns.RR
}

func NewTrustAnchor(records ...dns.RR) (*TrustAnchor, error) {
	if len(records) == 0 {
		return nil, ErrAnchorEmpty
	}

	owner := dns.CanonicalName(records[0].Header().Name)
	for _, rr := range records {
		switch rr.Header().Rrtype {
		case dns.TypeDNSKEY, dns.TypeDS:
		default:
			return nil, fmt.Errorf("%w: got type %d", ErrAnchorRecordInvalid, rr.Header().Rrtype)
		}
		if !namesEqual(owner, rr.Header().Name) {
			return nil, fmt.Errorf("%w: [%s] and [%s]", ErrAnchorOwnerMismatch, owner, rr.Header().Name)
		}
	}

	return &TrustAnchor{
		owner:   owner,
		records: records,
	}, nil
}

func (ta *TrustAnchor) Owner() string {
	return ta.owner
}

func (ta *TrustAnchor) Records() []dns.RR {
	return ta.records
}

// TrustAnchors finds the anchor responsible for a name by longest-suffix
// match. An anchor at a more specific name always wins over one closer to
// the root.
type TrustAnchors struct {
	anchors map[string]*TrustAnchor
}

func NewTrustAnchors(tas ...*TrustAnchor) *TrustAnchors {
	t := &TrustAnchors{
		anchors: make(map[string]*TrustAnchor, len(tas)),
	}
	for _, ta := range tas {
		t.Add(ta)
	}
	return t
}

func (t *TrustAnchors) Add(ta *TrustAnchor) {
	t.anchors[ta.owner] = ta
}

func (t *TrustAnchors) Find(name string) *TrustAnchor {
	name = dns.CanonicalName(name)

	for _, i := range dns.Split(name) {
		if ta, found := t.anchors[name[i:]]; found {
			return ta
		}
	}
	return t.anchors["."]
}

// DefaultTrustAnchors returns the store seeded with the currently valid
// root zone anchors.
func DefaultTrustAnchors() *TrustAnchors {
	ds := anchors.GetValid()
	records := make([]dns.RR, len(ds))
	for i, d := range ds {
		records[i] = d
	}

	ta, err := NewTrustAnchor(records...)
	if err != nil {
		// The published root anchors are well-formed DS records.
		panic(err)
	}
	return NewTrustAnchors(ta)
}
