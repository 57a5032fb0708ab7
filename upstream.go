package validator

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// Exchanger is the upstream query capability. Retries, timeouts and transport
// selection are its responsibility; the engine only builds questions and
// interprets answers.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error)
}

// newInfraQuery builds a DS or DNSKEY query. Checking is disabled because the
// engine does its own validation, recursion is desired, and the DO bit asks
// for the DNSSEC records themselves.
func newInfraQuery(name string, rtype uint16) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.CanonicalName(name), rtype)
	msg.RecursionDesired = true
	msg.CheckingDisabled = true
	msg.SetEdns0(4096, true)
	return msg
}

// requestAsGroups issues an infrastructure query and partitions the reply.
// Failures never surface as errors here: a missing or unparsable reply on a
// DS/DNSKEY lookup degrades only the branch being resolved, so the failure is
// reported as a diagnostic for the caller to fold into a Bogus node.
func (vc *ValidationContext) requestAsGroups(ctx context.Context, name string, rtype uint16) (answers, authorities groupSet, ede *dns.EDNS0_EDE) {
	query := newInfraQuery(name, rtype)
	Query(fmt.Sprintf("infrastructure query [%s] type [%d]", query.Question[0].Name, rtype))

	reply, err := vc.upstream.Exchange(ctx, query)
	if err != nil {
		return nil, nil, makeEDE(dns.ExtendedErrorCodeDNSBogus, "request for DS or DNSKEY failed")
	}
	if reply == nil || (reply.Rcode != dns.RcodeSuccess && reply.Rcode != dns.RcodeNameError) {
		return nil, nil, makeEDE(dns.ExtendedErrorCodeDNSBogus, "request for DS or DNSKEY returned no usable reply")
	}

	return groupRecords(reply.Answer), groupRecords(reply.Ns), nil
}
