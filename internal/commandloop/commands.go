// Package commandloop parses chat commands and callback-button presses
// and drives the store, grouping engine, file-impact analyser and
// orchestrator on their behalf (§4.8).
package commandloop

import "strings"

// parsed is one recognised command with its raw argument string split on
// whitespace, plus the untouched remainder for commands (like /newtask)
// that take free text.
type parsed struct {
	name string
	args []string
	rest string
}

// parseCommand splits a slash command's name from its arguments. Input
// that doesn't start with "/" is not a command at all.
func parseCommand(text string) (parsed, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return parsed{}, false
	}

	fields := strings.SplitN(text, " ", 2)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))

	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	return parsed{name: name, args: strings.Fields(rest), rest: rest}, true
}
