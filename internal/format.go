package internal

import (
	"fmt"
	"strings"
)

// CheckAnnotation returns a parenthetical annotation like " (2 failed, 1 expired)"
// for non-zero counts, or an empty string if both are zero.
func CheckAnnotation(failed, expired int) string {
	var parts []string
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if expired > 0 {
		parts = append(parts, fmt.Sprintf("%d expired", expired))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
