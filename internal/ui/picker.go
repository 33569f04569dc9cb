package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
)

// DevicePicker is the interactive device selection model for playback transfer.
type DevicePicker struct {
	ctx    context.Context
	player services.PlayerService

	width  int
	height int
	ready  bool

	devices list.Model
	choice  *services.Device
	err     error

	help help.Model
	keys keyMap
}

type devicesFetchedMsg struct {
	devices []services.Device
	err     error
}

// NewDevicePicker creates a picker that lists the account's playback devices.
func NewDevicePicker(ctx context.Context, player services.PlayerService) *DevicePicker {
	return &DevicePicker{
		ctx:    ctx,
		player: player,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Choice returns the selected device, or nil when the picker was dismissed.
func (m *DevicePicker) Choice() *services.Device {
	return m.choice
}

// Err returns the failure that stopped the picker, if any.
func (m *DevicePicker) Err() error {
	return m.err
}

// Init starts the device fetch.
func (m *DevicePicker) Init() tea.Cmd {
	return m.fetchDevices()
}

// Update handles incoming messages and updates the picker state.
func (m *DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ready {
			m.devices.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		if m.ready && m.devices.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if !m.ready {
				return m, nil
			}
			if selected := m.devices.SelectedItem(); selected != nil {
				if item, ok := selected.(deviceItem); ok {
					device := item.device
					m.choice = &device
					return m, tea.Quit
				}
			}
			return m, nil
		}

	case devicesFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		if len(msg.devices) == 0 {
			m.err = fmt.Errorf("%w: no devices registered with this account", shared.ErrNoActiveDevice)
			return m, tea.Quit
		}
		m.setDevices(msg.devices)
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.devices, cmd = m.devices.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the picker.
func (m *DevicePicker) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if !m.ready {
		return styles.help.Render("Fetching devices...")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.devices.View(), helpView)
}

func (m *DevicePicker) setDevices(devices []services.Device) {
	items := make([]list.Item, len(devices))
	active := 0
	for i, device := range devices {
		items[i] = deviceItem{device: device}
		if device.Active {
			active = i
		}
	}

	width, height := m.width-4, m.height-6
	if m.width == 0 {
		width, height = 60, 14
	}

	m.devices = list.New(items, list.NewDefaultDelegate(), width, height)
	m.devices.Title = "Spotify Devices"
	m.devices.SetShowHelp(false)
	m.devices.Select(active)
	m.ready = true
}

func (m *DevicePicker) fetchDevices() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.player.Devices(m.ctx)
		return devicesFetchedMsg{devices: devices, err: err}
	}
}
