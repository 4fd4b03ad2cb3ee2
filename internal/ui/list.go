package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mcx/internal/models"
)

var _ list.Item = instanceItem{}

// instanceItem wraps [models.InstanceSettings] to implement [list.Item].
type instanceItem struct {
	instance *models.InstanceSettings
}

func (i instanceItem) FilterValue() string { return i.instance.Title }
func (i instanceItem) Title() string       { return i.instance.Title }
func (i instanceItem) Description() string {
	desc := "Minecraft " + i.instance.Versions.Minecraft
	if v := i.instance.LoaderVersionName(); v != "" {
		desc = fmt.Sprintf("%s • %s", desc, v)
	}
	if p := i.instance.ModPack; p != nil && p.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, p.Name)
	}
	return desc
}
