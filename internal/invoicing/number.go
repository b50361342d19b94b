package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumber returns an invoice number like "INV-2025-001".
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("INV-%04d-%03d", year, seq)
}

// YearPrefix returns the shared prefix of a year's invoice numbers.
func YearPrefix(year int) string {
	return fmt.Sprintf("INV-%04d-", year)
}

// ParseNumber parses "INV-2025-001" into year and sequence.
func ParseNumber(number string) (year, seq int, err error) {
	parts := strings.SplitN(number, "-", 3)
	if len(parts) != 3 || parts[0] != "INV" {
		return 0, 0, fmt.Errorf("invalid invoice number format: %q", number)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in invoice number %q: %w", number, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sequence in invoice number %q: %w", number, err)
	}

	return year, seq, nil
}
