package doe

import (
	"github.com/miekg/dns"
)

const zoneName = "example.com."

func newRR(s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		panic(err)
	}
	return rr
}

// testHash is an unmemoized HashFunc for tests.
func testHash(name string, algorithm uint8, iterations uint16, salt string) string {
	return dns.HashName(name, algorithm, iterations, salt)
}
