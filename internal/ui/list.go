package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"spotify-cli/internal/services"
)

var _ list.Item = deviceItem{}

// deviceItem wraps [services.Device] to implement [list.Item].
type deviceItem struct {
	device services.Device
}

func (i deviceItem) FilterValue() string { return i.device.Name }
func (i deviceItem) Title() string {
	if i.device.Active {
		return fmt.Sprintf("%s (active)", i.device.Name)
	}
	return i.device.Name
}

func (i deviceItem) Description() string {
	parts := []string{i.device.Type}
	if i.device.VolumePercent > 0 {
		parts = append(parts, fmt.Sprintf("volume %d%%", i.device.VolumePercent))
	}
	if i.device.Restricted {
		parts = append(parts, "restricted")
	}
	return strings.Join(parts, " • ")
}
