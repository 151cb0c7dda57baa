package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode says what the prompt line is collecting.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is the input bar opened with ':' for commands and '/' for the chat
// filter. Filter mode reports every keystroke so the list narrows as the
// user types; command mode completes against the known command names.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	commands []string

	onSubmit func(mode PromptMode, text string)
	onChange func(text string)
	onCancel func()
}

// NewPrompt creates the prompt bar.
func NewPrompt(theme *Theme) *Prompt {
	p := &Prompt{InputField: tview.NewInputField()}
	p.SetBorder(true)
	p.SetBorderColor(theme.PromptBorderColor)
	p.SetBackgroundColor(theme.BgColor)
	p.SetFieldBackgroundColor(theme.BgColor)
	p.SetFieldTextColor(theme.FgColor)
	p.SetLabelColor(theme.MenuKeyColor)
	p.SetTitleColor(theme.TitleColor)

	p.SetAutocompleteFunc(p.complete)
	p.SetChangedFunc(func(text string) {
		if p.mode == PromptFilter && p.onChange != nil {
			p.onChange(text)
		}
	})
	p.SetDoneFunc(p.done)
	return p
}

func (p *Prompt) done(key tcell.Key) {
	text := strings.TrimSpace(p.GetText())
	mode := p.mode
	switch {
	case key == tcell.KeyEnter && (text != "" || mode == PromptFilter):
		if p.onSubmit != nil {
			p.onSubmit(mode, text)
		}
	case key == tcell.KeyEnter, key == tcell.KeyEscape:
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

// complete offers command names sharing the typed prefix. Arguments are
// never completed.
func (p *Prompt) complete(text string) []string {
	if p.mode != PromptCommand || text == "" || strings.Contains(text, " ") {
		return nil
	}
	var out []string
	for _, name := range p.commands {
		if strings.HasPrefix(name, text) && name != text {
			out = append(out, name)
		}
	}
	return out
}

// SetCommands sets the names offered for completion in command mode.
func (p *Prompt) SetCommands(names []string) { p.commands = names }

// SetOnSubmit sets the Enter handler. An empty command is a cancel; an
// empty filter is submitted so it can clear the current one.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }

// SetOnChange sets the per-keystroke handler for filter mode.
func (p *Prompt) SetOnChange(fn func(text string)) { p.onChange = fn }

// SetOnCancel sets the Esc handler.
func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }

// Activate switches to mode and seeds the field with text.
func (p *Prompt) Activate(mode PromptMode, text string) {
	// Mode is set last so seeding a filter does not echo through onChange.
	p.mode = PromptCommand
	p.SetText(text)
	if mode == PromptFilter {
		p.SetLabel("/").SetTitle(" Filter chats ")
	} else {
		p.SetLabel(":").SetTitle(" Command ")
	}
	p.mode = mode
}

// Mode returns the active mode.
func (p *Prompt) Mode() PromptMode { return p.mode }
