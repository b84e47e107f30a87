package docfile

import "bytes"

// detectIndent returns the base indent of a YAML file: the GCD of all
// non-zero leading-space counts on content lines, or 2 when there is no
// evidence.
func detectIndent(b []byte) int {
	result := 0
	for _, ln := range bytes.Split(b, []byte("\n")) {
		if isBlankOrComment(ln) {
			continue
		}
		n := leadingSpaces(ln)
		// sequence items inside a mapping are often indented by two regardless
		// of the mapping indent
		if trimmed := bytes.TrimLeft(ln, " "); len(trimmed) > 0 && trimmed[0] == '-' {
			continue
		}
		if n == 0 {
			continue
		}
		result = gcd(result, n)
		if result == 1 {
			break
		}
	}
	if result >= 2 && result <= 8 {
		return result
	}
	return 2
}

func isBlankOrComment(ln []byte) bool {
	t := bytes.TrimSpace(ln)
	return len(t) == 0 || t[0] == '#'
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func leadingSpaces(line []byte) int {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
