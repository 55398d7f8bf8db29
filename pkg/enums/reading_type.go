package enums

import (
	"fmt"
	"strings"
)

// ReadingType selects the instruction profile and email subject of a reading.
type ReadingType string

const (
	ReadingTypeAkashica ReadingType = "akashica"
	ReadingTypeVidas    ReadingType = "vidas"
	ReadingTypeFuturo   ReadingType = "futuro"
	ReadingTypeAlma     ReadingType = "alma"
)

// DefaultReadingType is used whenever the submitted type is absent or unknown.
const DefaultReadingType = ReadingTypeAkashica

var validReadingTypes = []ReadingType{
	ReadingTypeAkashica,
	ReadingTypeVidas,
	ReadingTypeFuturo,
	ReadingTypeAlma,
}

// ReadingTypes returns the known reading types in display order.
func ReadingTypes() []ReadingType {
	out := make([]ReadingType, len(validReadingTypes))
	copy(out, validReadingTypes)
	return out
}

// String implements fmt.Stringer.
func (r ReadingType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReadingType.
func (r ReadingType) IsValid() bool {
	for _, candidate := range validReadingTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReadingType converts raw input into a ReadingType.
func ParseReadingType(value string) (ReadingType, error) {
	normalized := ReadingType(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid reading type %q", value)
}

// NormalizeReadingType maps any input to a known type, falling back to DefaultReadingType.
func NormalizeReadingType(value string) ReadingType {
	parsed, err := ParseReadingType(value)
	if err != nil {
		return DefaultReadingType
	}
	return parsed
}
