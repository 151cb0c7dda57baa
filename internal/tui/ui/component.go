package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	// Action marks hints that change remote state (swipe, send, logout).
	Action bool
}

// Component is a screen that can sit on the page stack.
type Component interface {
	// Name is shown in the breadcrumb trail.
	Name() string
	Hints() []MenuHint
}
