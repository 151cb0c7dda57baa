package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	MutedColor        tcell.Color
	BorderColor       tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	ActionKeyColor    tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	UnreadColor       tcell.Color
	OwnMessageColor   tcell.Color
	PeerMessageColor  tcell.Color
	AssistantColor    tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	FieldBgColor      tcell.Color
}

// DefaultTheme returns a dark theme with the product's pink accent.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightGray,
		MutedColor:        tcell.ColorGray,
		BorderColor:       tcell.ColorHotPink,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorPink,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorHotPink,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorThistle,
		MenuKeyColor:      tcell.ColorHotPink,
		ActionKeyColor:    tcell.ColorGold,
		TitleColor:        tcell.ColorHotPink,
		CounterColor:      tcell.ColorPapayaWhip,
		UnreadColor:       tcell.ColorDeepPink,
		OwnMessageColor:   tcell.ColorLightSkyBlue,
		PeerMessageColor:  tcell.ColorPink,
		AssistantColor:    tcell.ColorMediumAquamarine,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorHotPink,
		FieldBgColor:      tcell.ColorDarkSlateGray,
	}
}
