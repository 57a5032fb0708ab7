package validator

import "time"

const (
	// DefaultNodeCacheCapacity bounds the number of validated Nodes kept in memory.
	DefaultNodeCacheCapacity = 100

	// DefaultNsec3HashCacheCapacity bounds the number of memoized NSEC3 hashes.
	DefaultNsec3HashCacheCapacity = 100

	// DefaultInfraSigCacheCapacity bounds the signature cache used for DS/DNSKEY
	// infrastructure lookups. It is sized independently of the user cache so
	// that neither workload can starve the other.
	DefaultInfraSigCacheCapacity = 1000

	// DefaultUserSigCacheCapacity bounds the signature cache used when
	// validating user query responses.
	DefaultUserSigCacheCapacity = 1000

	// DefaultMaxNodeValidity caps how long any Node may be served from the
	// cache, regardless of the TTLs that contributed to it.
	DefaultMaxNodeValidity = 600 * time.Second

	// DefaultBogusTTL is the fixed, short validity given to Bogus Nodes so a
	// broken (or attacked) branch is re-examined promptly.
	DefaultBogusTTL = 30 * time.Second

	// DefaultMaxBadSignatures is the number of failed signature verifications
	// tolerated per RRset before the set is declared Bogus. A well-formed
	// DNSKEY RRset with its RRSIGs is self-contained, so beyond a rare key-tag
	// collision every verification is expected to succeed. More failures
	// indicate a CPU-exhaustion attempt such as KeyTrap (CVE-2023-50387).
	DefaultMaxBadSignatures = 1

	// DefaultNsec3IterationsInsecure: NSEC3 records with more iterations than
	// this are ignored for proof purposes (RFC 9276 deprecates high counts).
	DefaultNsec3IterationsInsecure = 100

	// DefaultNsec3IterationsBogus: above this the record is treated as hostile
	// and the proof is Bogus without any hashing being performed.
	DefaultNsec3IterationsBogus = 500

	// DefaultMaxCNAMEHops bounds CNAME/DNAME chain chasing within one message.
	DefaultMaxCNAMEHops = 11
)

var (
	// MaxNodeValidity caps the cache lifetime of every Node. Shorter TTLs on
	// the records that built the Node are always respected.
	MaxNodeValidity = DefaultMaxNodeValidity

	// BogusTTL is the validity applied to Nodes created from failed or
	// unparsable infrastructure responses.
	BogusTTL = DefaultBogusTTL

	// MaxBadSignatures is the per-RRset verification failure budget.
	MaxBadSignatures = DefaultMaxBadSignatures

	// Nsec3IterationsInsecure and Nsec3IterationsBogus guard against
	// deliberately expensive NSEC3 parameters.
	Nsec3IterationsInsecure = uint16(DefaultNsec3IterationsInsecure)
	Nsec3IterationsBogus    = uint16(DefaultNsec3IterationsBogus)

	// MaxCNAMEHops bounds the synthetic name chase in ValidateMsg.
	MaxCNAMEHops = DefaultMaxCNAMEHops

	// RequireAllSignaturesValid selects the local verification policy. When
	// false (the default, per RFC 4035) an RRset is accepted if at least one
	// covering signature verifies. When true, every covering signature must
	// verify.
	RequireAllSignaturesValid = false
)

type Logger func(string)

// Default logging functions just black-hole the input.

var Query Logger = func(s string) {}
var Debug Logger = func(s string) {}
var Info Logger = func(s string) {}
var Warn Logger = func(s string) {}
