package types

import (
	"fmt"
	"regexp"
)

// MRN represents a hospital medical record number: 8 digits followed by a
// Luhn check digit. Issued per institution; unique within one hospital.
type MRN string

var mrnRegex = regexp.MustCompile(`^\d{9}$`)

// ParseMRN validates and parses an MRN string
func ParseMRN(s string) (MRN, error) {
	if !mrnRegex.MatchString(s) {
		return "", fmt.Errorf("MRN must be exactly 9 digits")
	}

	mrn := MRN(s)
	if !mrn.IsValid() {
		return "", fmt.Errorf("invalid MRN check digit")
	}

	return mrn, nil
}

// String returns the string representation
func (m MRN) String() string {
	return string(m)
}

// Masked returns a masked version for display (last 3 digits visible)
func (m MRN) Masked() string {
	if len(m) < 9 {
		return "*********"
	}
	return "******" + string(m)[6:]
}

// IsValid validates the Luhn check digit
func (m MRN) IsValid() bool {
	if len(m) != 9 {
		return false
	}

	sum := 0
	double := true
	for i := len(m) - 2; i >= 0; i-- {
		d := int(m[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	check := (10 - sum%10) % 10
	return int(m[8]-'0') == check
}

// IsZero checks if the MRN is empty
func (m MRN) IsZero() bool {
	return m == ""
}
