package services

import (
	"fmt"
	"strings"
)

// CounterName keys the sequence of one branch and year, e.g. CGS_AB_2025
func CounterName(prefix, branchCode string, year int) string {
	return fmt.Sprintf("%s_%s_%d", strings.ToUpper(prefix), strings.ToUpper(branchCode), year)
}

// FormatStudentID renders PREFIX/CODE/YY/NNN. The sequence is padded to
// three digits and widens past 999.
func FormatStudentID(prefix, branchCode string, year int, seq int64) string {
	return fmt.Sprintf("%s/%s/%02d/%03d", strings.ToUpper(prefix), strings.ToUpper(branchCode), year%100, seq)
}
