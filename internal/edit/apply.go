// internal/edit/apply.go
package edit

import (
	"strings"
)

// Apply runs the edit blocks against content in list order. Replace and
// Delete use the first occurrence of their search lines; Insert
// prepends its replacement. Empty content is only legal when every
// block is an Insert. The result carries no synthetic trailing newline.
func Apply(content string, blocks []Block) (string, error) {
	return apply(content, blocks, false)
}

// ApplyUnique is the strict variant of Apply: a search block that
// matches more than one location fails with an AmbiguousMatchError
// instead of silently taking the first match.
func ApplyUnique(content string, blocks []Block) (string, error) {
	return apply(content, blocks, true)
}

func apply(content string, blocks []Block, unique bool) (string, error) {
	if content == "" {
		for _, b := range blocks {
			if b.Op != Insert {
				return "", ErrEmptyContent
			}
		}
	}

	lines := splitLines(content)
	for _, b := range blocks {
		var err error
		lines, err = applyBlock(lines, b, unique)
		if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

func applyBlock(lines []string, b Block, unique bool) ([]string, error) {
	switch b.Op {
	case Delete:
		return spliceAt(lines, b.Search, nil, unique)
	case Insert:
		return append(append([]string{}, b.Replacement...), lines...), nil
	default:
		if len(b.Search) == 0 {
			// Defensive: a Replace with an empty search behaves as a prepend.
			return append(append([]string{}, b.Replacement...), lines...), nil
		}
		return spliceAt(lines, b.Search, b.Replacement, unique)
	}
}

// spliceAt replaces the first contiguous occurrence of search in lines
// with replacement (nil deletes the span).
func spliceAt(lines, search, replacement []string, unique bool) ([]string, error) {
	start, err := findSearch(lines, search, unique)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(lines)-len(search)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[start+len(search):]...)
	return out, nil
}

// findSearch locates search in lines by exact line-for-line equality.
// With unique set, a second occurrence is an error; otherwise the first
// match wins.
func findSearch(lines, search []string, unique bool) (int, error) {
	if len(search) == 0 {
		return 0, &SearchNotFoundError{Search: search}
	}

	first := -1
	count := 0
	for start := 0; start+len(search) <= len(lines); start++ {
		if matchesAt(lines, search, start) {
			if first < 0 {
				first = start
			}
			count++
			if !unique {
				return first, nil
			}
		}
	}

	switch {
	case first < 0:
		return 0, &SearchNotFoundError{Search: search}
	case count > 1:
		return 0, &AmbiguousMatchError{Search: search, Count: count}
	default:
		return first, nil
	}
}

func matchesAt(lines, search []string, start int) bool {
	for i, s := range search {
		if lines[start+i] != s {
			return false
		}
	}
	return true
}

// splitLines splits content the way line iteration does: no entry for a
// trailing newline, carriage returns stripped. Empty content yields no
// lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
