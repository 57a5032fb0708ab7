package validator

import (
	"errors"

	"github.com/miekg/dns"
)

var (
	ErrNilMessage          = errors.New("no message to validate")
	ErrFormError           = errors.New("message must contain exactly one question")
	ErrKeysNotFound        = errors.New("no dnskey records found for zone")
	ErrAnchorRecordInvalid = errors.New("trust anchor records must be DNSKEY or DS")
	ErrAnchorOwnerMismatch = errors.New("trust anchor records must share one owner name")
	ErrAnchorEmpty         = errors.New("trust anchor requires at least one record")

	errNoSignature        = errors.New("no covering rrsig found")
	errVerifyFailed       = errors.New("signature verification failed")
	errInvalidTime        = errors.New("current time is outside of the signature validity period")
	errInvalidLabelCount  = errors.New("rrset owner name has fewer labels than the rrsig labels field")
	errSignerNameMismatch = errors.New("rrsig signer name does not match the expected signer")
	errTooManyBadSigs     = errors.New("signature verification failure budget exhausted")
)

// Diagnostic texts follow the Extended DNS Error registry (RFC 8914).
func makeEDE(infoCode uint16, text string) *dns.EDNS0_EDE {
	return &dns.EDNS0_EDE{
		InfoCode:  infoCode,
		ExtraText: text,
	}
}
