// Package doe implements the range and bitmap arithmetic behind NSEC and
// NSEC3 denial-of-existence proofs. Records handed to this package must have
// had their signatures validated already; nothing here checks signatures.
package doe

import (
	"github.com/miekg/dns"
)

// HashFunc computes the base32hex NSEC3 hash of a name. Implementations are
// expected to memoize: iteration counts are attacker-controlled.
type HashFunc func(name string, algorithm uint8, iterations uint16, salt string) string

type NSEC struct {
	zone    string
	records []*dns.NSEC
}

type NSEC3 struct {
	zone    string
	hash    HashFunc
	records []*dns.NSEC3
}

func NewNSEC(zone string, records []*dns.NSEC) *NSEC {
	return &NSEC{
		zone:    dns.CanonicalName(zone),
		records: records,
	}
}

func NewNSEC3(zone string, hash HashFunc, records []*dns.NSEC3) *NSEC3 {
	checkRecords := make([]*dns.NSEC3, 0, len(records))
	for _, r := range records {
		// We must ignore records that have unknown hash or flag values.
		if r.Hash != dns.SHA1 {
			continue
		}
		if r.Flags > 1 {
			continue
		}

		checkRecords = append(checkRecords, r)
	}
	return &NSEC3{
		zone:    dns.CanonicalName(zone),
		hash:    hash,
		records: checkRecords,
	}
}

func (d *NSEC) Empty() bool {
	return len(d.records) == 0
}

func (d *NSEC3) Empty() bool {
	return len(d.records) == 0
}
