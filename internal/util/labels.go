package util

// OptionLabel converts a 0-based position into the option label shown to
// students: A, B, … Z, AA, AB, …
func OptionLabel(i int) string {
	if i < 0 {
		return ""
	}
	label := ""
	for {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return label
}

// LabelIndex is the inverse of OptionLabel; -1 for malformed labels.
func LabelIndex(label string) int {
	if label == "" {
		return -1
	}
	n := 0
	for _, r := range label {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}
