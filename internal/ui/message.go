package ui

// Styled status lines for command output. Commands print these instead of
// touching the palette directly.

// Success renders a confirmation line with a leading checkmark.
func Success(text string) string {
	return styles.ok.Render("✓ " + text)
}

// Failure renders an error line with a leading cross.
func Failure(text string) string {
	return styles.err.Render("✗ " + text)
}

// Warning renders a cautionary line.
func Warning(text string) string {
	return styles.warn.Render(text)
}

// Title renders a heading line.
func Title(text string) string {
	return styles.title.Render(text)
}

// Hint renders a de-emphasized line for secondary information.
func Hint(text string) string {
	return styles.help.Render(text)
}
