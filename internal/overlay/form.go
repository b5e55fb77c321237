package overlay

import "strings"

// parseTokens extracts completed filter tokens from the raw input value.
// A token is complete once a space follows it: "#philosophy " becomes a tag
// chip, "book:Meditations " becomes the book filter. The last field is left
// alone while still being typed. remainder is the input value with extracted
// tokens removed.
func parseTokens(value string) (remainder string, tags []string, book string, found bool) {
	if !strings.Contains(value, " ") {
		return value, nil, "", false
	}

	endsWithSpace := strings.HasSuffix(value, " ")
	fields := strings.Split(value, " ")
	var kept []string

	last := len(fields) - 1
	for i, f := range fields {
		complete := i < last || endsWithSpace
		if !complete || f == "" {
			kept = append(kept, f)
			continue
		}
		switch {
		case strings.HasPrefix(f, "#") && len(f) > 1:
			tags = append(tags, f)
			found = true
		case strings.HasPrefix(f, "book:") && len(f) > len("book:"):
			book = strings.Trim(f[len("book:"):], `"`)
			found = true
		default:
			kept = append(kept, f)
		}
	}
	if !found {
		return value, nil, "", false
	}

	remainder = strings.Join(kept, " ")
	// Collapse doubled separators left behind by removed tokens.
	for strings.Contains(remainder, "  ") {
		remainder = strings.ReplaceAll(remainder, "  ", " ")
	}
	if !endsWithSpace {
		remainder = strings.TrimLeft(remainder, " ")
	} else if remainder == " " {
		remainder = ""
	}
	return remainder, tags, book, true
}
