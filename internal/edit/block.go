// internal/edit/block.go
package edit

// Operation is the kind of transformation an edit block performs.
type Operation int

const (
	// Replace swaps the matched search lines for the replacement lines.
	Replace Operation = iota
	// Delete removes the matched search lines.
	Delete
	// Insert prepends the replacement lines to the content.
	Insert
)

func (op Operation) String() string {
	switch op {
	case Replace:
		return "replace"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	default:
		return "unknown"
	}
}

// Block is a single parsed SEARCH/REPLACE edit instruction. Lines are
// stored right-trimmed, exactly as the parser saw them. Search and
// Replacement are never both empty; Op is Insert iff Search is empty
// and Replacement is not.
type Block struct {
	Search      []string
	Replacement []string
	Op          Operation
}
