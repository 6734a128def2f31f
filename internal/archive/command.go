// internal/archive/command.go
package archive

import (
	"regexp"
	"strings"
)

// Command is a command reference extracted from the archive comment,
// written as a markdown-style link: [command: NAME](#HREF).
type Command struct {
	Name string
	Href string
}

// commandLink matches [command: NAME](#HREF) on a single line. NAME
// runs up to the closing bracket, HREF up to the closing paren; neither
// may span lines.
var commandLink = regexp.MustCompile(`\[command:([^\]\n]*)\][ \t]*\(#([^)\n]*)\)`)

// parseCommands extracts all command links from comment text, in order
// of appearance.
func parseCommands(comment string) []Command {
	var cmds []Command
	for _, m := range commandLink.FindAllStringSubmatch(comment, -1) {
		cmds = append(cmds, Command{
			Name: strings.TrimSpace(m[1]),
			Href: m[2],
		})
	}
	return cmds
}
