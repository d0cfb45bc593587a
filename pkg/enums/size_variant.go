package enums

import "fmt"

// SizeVariant enumerates the pizza sizes the catalog prices individually.
type SizeVariant string

const (
	SizeVariantSmall  SizeVariant = "small"
	SizeVariantMedium SizeVariant = "medium"
	SizeVariantLarge  SizeVariant = "large"
)

var validSizeVariants = []SizeVariant{
	SizeVariantSmall,
	SizeVariantMedium,
	SizeVariantLarge,
}

// String implements fmt.Stringer.
func (s SizeVariant) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SizeVariant.
func (s SizeVariant) IsValid() bool {
	for _, candidate := range validSizeVariants {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSizeVariant converts raw input into a SizeVariant.
func ParseSizeVariant(value string) (SizeVariant, error) {
	for _, candidate := range validSizeVariants {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid size variant %q", value)
}
