// internal/edit/parser.go
package edit

import (
	"strings"
)

// Edit body markers, matched as line prefixes after right-trimming.
const (
	searchOpen   = "<<<<<<< SEARCH"
	separator    = "======="
	replaceClose = ">>>>>>> REPLACE"
	insertClose  = ">>>>>>> INSERT"
	deleteClose  = ">>>>>>> DELETE"
)

type parseState int

const (
	stateStart parseState = iota
	stateInSearch
	stateInReplace
)

// parser is the 3-state machine over an edit body. Transitions:
// Start -> InSearch on the SEARCH-open marker, InSearch -> InReplace on
// the separator (or back to Start on DELETE-close), InReplace -> Start
// on REPLACE/INSERT-close. Terminal validity requires ending in Start.
type parser struct {
	blocks  []Block
	search  []string
	replace []string
	state   parseState
}

// Parse turns a file body into its ordered edit blocks. Lines are
// right-trimmed before matching; blank lines inside a block are
// significant content, blank lines between blocks are skipped.
func Parse(content string) ([]Block, error) {
	p := &parser{}
	for i, line := range splitLines(content) {
		if err := p.parseLine(strings.TrimRight(line, " \t"), i+1); err != nil {
			return nil, err
		}
	}
	return p.finish()
}

func (p *parser) parseLine(line string, lineNum int) error {
	switch p.state {
	case stateInSearch:
		return p.handleSearch(line)
	case stateInReplace:
		return p.handleReplace(line)
	default:
		return p.handleStart(line, lineNum)
	}
}

func (p *parser) handleStart(line string, lineNum int) error {
	switch {
	case strings.HasPrefix(line, searchOpen):
		p.search = []string{}
		p.state = stateInSearch
		return nil
	case strings.HasPrefix(line, "<<<<<<<"):
		return &MalformedLineError{LineNumber: lineNum, Line: line}
	case line != "":
		return &ExpectedSearchStartError{LineNumber: lineNum, Line: line}
	default:
		return nil
	}
}

func (p *parser) handleSearch(line string) error {
	switch {
	case strings.HasPrefix(line, separator):
		p.state = stateInReplace
	case strings.HasPrefix(line, deleteClose):
		p.blocks = append(p.blocks, Block{
			Search: p.search,
			Op:     Delete,
		})
		p.search = nil
		p.state = stateStart
	default:
		p.search = append(p.search, line)
	}
	return nil
}

func (p *parser) handleReplace(line string) error {
	if strings.HasPrefix(line, replaceClose) || strings.HasPrefix(line, insertClose) {
		p.blocks = append(p.blocks, Block{
			Search:      p.search,
			Replacement: p.replace,
			Op:          Replace, // Insert inferred in finish
		})
		p.search = nil
		p.replace = nil
		p.state = stateStart
		return nil
	}
	p.replace = append(p.replace, line)
	return nil
}

func (p *parser) finish() ([]Block, error) {
	if p.state != stateStart {
		return nil, ErrUnterminatedBlock
	}
	for i := range p.blocks {
		b := &p.blocks[i]
		if len(b.Search) == 0 && len(b.Replacement) == 0 {
			return nil, ErrEmptyBlock
		}
		if b.Op == Replace && len(b.Search) == 0 {
			b.Op = Insert
		}
	}
	return p.blocks, nil
}
