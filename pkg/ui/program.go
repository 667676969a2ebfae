package ui

import tea "github.com/charmbracelet/bubbletea"

// Program is the running Bubble Tea program, set by main.
var Program *tea.Program

// OnStartModules is called once the welcome screen is left. main uses it to
// begin starting modules while the startup screen is shown.
var OnStartModules func()

// Send forwards msg to the running program. It is a no-op before Program is set.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
