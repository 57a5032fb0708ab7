package validator

// ValidationState classifies the DNSSEC trust in a name or a response.
type ValidationState uint8

const (
	Unknown ValidationState = iota
	Secure
	Insecure
	Bogus
	Indeterminate
)

func (s ValidationState) String() string {
	switch s {
	case Secure:
		return "Secure"
	case Insecure:
		return "Insecure"
	case Bogus:
		return "Bogus"
	case Indeterminate:
		return "Indeterminate"
	}
	return "Unknown"
}

// DenialOfExistenceState records which, if any, negative proof was accepted.
type DenialOfExistenceState uint8

const (
	NotFound DenialOfExistenceState = iota

	NsecMissingDS
	NsecNoData
	NsecWildcard
	NsecNxDomain

	Nsec3MissingDS
	Nsec3NoData
	Nsec3Wildcard
	Nsec3NxDomain
	Nsec3OptOut
)

func (d DenialOfExistenceState) String() string {
	switch d {
	case NsecMissingDS:
		return "NsecMissingDS"
	case NsecNoData:
		return "NsecNoData"
	case NsecWildcard:
		return "NsecWildcard"
	case NsecNxDomain:
		return "NsecNxDomain"
	case Nsec3MissingDS:
		return "Nsec3MissingDS"
	case Nsec3NoData:
		return "Nsec3NoData"
	case Nsec3Wildcard:
		return "Nsec3Wildcard"
	case Nsec3NxDomain:
		return "Nsec3NxDomain"
	case Nsec3OptOut:
		return "Nsec3OptOut"
	}
	return "NotFound"
}
