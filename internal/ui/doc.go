// Package ui implements interactive terminal components using bubbletea's Elm architecture.
//
// The [DevicePicker] drives device selection for playback transfer:
//  1. Fetches the account's playback devices asynchronously on Init
//  2. Presents them as a bubbles [list.Model] with the active device preselected
//  3. Returns the selection through [DevicePicker.Choice] after the program exits
//
// The picker implements bubbletea/Elm's standard Init/Update/View pattern.
// Keyboard navigation uses vim-style bindings (j/k, enter, q) with contextual
// help displayed via charmbracelet/bubbles/help.
//
// The package also exports styled status lines ([Success], [Failure], [Warning],
// [Hint]) built on a shared lipgloss [Palette], so command output stays
// consistent without each command reaching for lipgloss directly.
package ui
