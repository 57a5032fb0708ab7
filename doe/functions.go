package doe

import (
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// wildcardName replaces the first label with `*`
func wildcardName(name string) string {
	labelIndexes := dns.Split(name)
	if len(labelIndexes) < 2 {
		return "*."
	}
	return "*." + name[labelIndexes[1]:]
}

// compareNames orders two names canonically (RFC 4034 section 6.1): compare
// label by label from the right, lowercased, with escaped octets decoded.
func compareNames(a, b string) int {
	labelsA := dns.SplitDomainName(dns.CanonicalName(a))
	labelsB := dns.SplitDomainName(dns.CanonicalName(b))

	minLength := min(len(labelsA), len(labelsB))

	for i := 1; i <= minLength; i++ {
		labelA := decodeEscaped(labelsA[len(labelsA)-i])
		labelB := decodeEscaped(labelsB[len(labelsB)-i])

		if labelA != labelB {
			if labelA < labelB {
				return -1
			}
			return 1
		}
	}

	// Identical so far; the shorter name sorts first.
	switch {
	case len(labelsA) < len(labelsB):
		return -1
	case len(labelsA) > len(labelsB):
		return 1
	}
	return 0
}

// decodeEscaped converts escaped octets (e.g. \001) to their byte values so
// they compare by value, not by their presentation form.
func decodeEscaped(label string) string {
	if !strings.Contains(label, `\`) {
		return label
	}

	var decoded strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] == '\\' && i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
			if octet, err := strconv.Atoi(label[i+1 : i+4]); err == nil {
				decoded.WriteByte(byte(octet))
				i += 3
				continue
			}
		}
		decoded.WriteByte(label[i])
	}
	return decoded.String()
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
