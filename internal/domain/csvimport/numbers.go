package csvimport

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePercentage converts a percentage cell to a fraction. A trailing "%"
// divides by 100. A bare number above 1 is assumed to be a whole percentage
// needing division, while a value at or below 1 is assumed to already be a
// fraction. The >1 guess misclassifies values between 1 and 100 that were
// meant as decimal ratios; that ambiguity is in the source data and the rule
// is kept as-is rather than "fixed".
func ParsePercentage(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, fmt.Errorf("empty percentage")
	}

	hadSign := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "%"))

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}

	if hadSign || n > 1 {
		return n / 100, nil
	}
	return n, nil
}

// ParseInteger reads a whole-number cell, tolerating thousands separators.
func ParseInteger(s string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty integer")
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// ParseDecimal reads a plain decimal cell, tolerating thousands separators.
func ParseDecimal(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty decimal")
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	return n, nil
}
