package validator

import (
	"time"

	"github.com/miekg/dns"
)

// Node is the validated signing state at one name. A Node is immutable once
// built; expiry replaces it with a freshly resolved one.
type Node struct {
	state ValidationState

	keys         []*dns.DNSKEY
	signerName   string
	intermediate bool
	ede          *dns.EDNS0_EDE

	createdAt time.Time
	validFor  time.Duration
}

func indeterminateNode(name string, ede *dns.EDNS0_EDE, validFor time.Duration) *Node {
	return &Node{
		state:      Indeterminate,
		signerName: dns.CanonicalName(name),
		ede:        ede,
		createdAt:  time.Now(),
		validFor:   validFor,
	}
}

func delegationNode(signerName string, state ValidationState, keys []*dns.DNSKEY, ede *dns.EDNS0_EDE, validFor time.Duration) *Node {
	return &Node{
		state:      state,
		signerName: dns.CanonicalName(signerName),
		keys:       keys,
		ede:        ede,
		createdAt:  time.Now(),
		validFor:   validFor,
	}
}

// intermediateNode marks a name that holds no keys of its own, e.g. an empty
// non-terminal or a validly signed CNAME hop. The effective signer identity is
// inherited from the nearest key-holding ancestor.
func intermediateNode(state ValidationState, signerName string, ede *dns.EDNS0_EDE, validFor time.Duration) *Node {
	return &Node{
		state:        state,
		signerName:   dns.CanonicalName(signerName),
		intermediate: true,
		ede:          ede,
		createdAt:    time.Now(),
		validFor:     validFor,
	}
}

func (n *Node) ValidationState() ValidationState {
	return n.state
}

// Keys returns the DNSKEY RRset validated at this node. Empty unless the node
// holds its own keys.
func (n *Node) Keys() []*dns.DNSKEY {
	return n.keys
}

func (n *Node) SignerName() string {
	return n.signerName
}

func (n *Node) Intermediate() bool {
	return n.intermediate
}

func (n *Node) ExtendedError() *dns.EDNS0_EDE {
	return n.ede
}

// TTL is the remaining cache lifetime, the minimum of every TTL and signature
// expiry that contributed to the node's state, less the time elapsed since
// construction.
func (n *Node) TTL() time.Duration {
	return n.validFor - time.Since(n.createdAt)
}

func (n *Node) Expired() bool {
	return time.Since(n.createdAt) > n.validFor
}
