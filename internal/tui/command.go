package tui

import "strings"

// Command is a parsed ':' prompt entry or '/' composer command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses input without its leading ':' or '/'.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// composerCommand reports whether composer text is a command such as
// "/attach photo.jpg" rather than a message. "//text" sends "/text".
func composerCommand(text string) (Command, string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "//") {
		return Command{}, text[1:], false
	}
	if strings.HasPrefix(text, "/") && len(text) > 1 {
		return ParseCommand(text[1:]), "", true
	}
	return Command{}, text, false
}
