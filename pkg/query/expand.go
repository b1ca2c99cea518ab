package query

import "strings"

// expand generates up to four query variants. Variants duplicating an
// earlier one (exact string match) are dropped.
func expand(question string) []string {
	base := strings.TrimSpace(question)
	stripped := strings.TrimRight(base, "?!. ")

	candidates := []string{
		base,
		stripped,
		"What is " + stripped + "?",
		"Explain " + stripped + ".",
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		variants = append(variants, c)
	}

	return variants
}
