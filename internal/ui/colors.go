package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Grass, emerald, redstone and gold, each with a light-terminal variant.
var (
	grass    = lipgloss.AdaptiveColor{Light: "#3B7A1E", Dark: "#7FC74A"}
	emerald  = lipgloss.AdaptiveColor{Light: "#038C4C", Dark: "#17DD62"}
	redstone = lipgloss.AdaptiveColor{Light: "#A00000", Dark: "#FF3B3B"}
	gold     = lipgloss.AdaptiveColor{Light: "#B37700", Dark: "#FCDB05"}
	stone    = lipgloss.AdaptiveColor{Light: "#7A7A7A", Dark: "#8B8B8B"}
)

var styles = palette{
	title: lipgloss.NewStyle().Foreground(grass).Bold(true).MarginBottom(1),
	stage: lipgloss.NewStyle().Foreground(grass),
	ok:    lipgloss.NewStyle().Foreground(emerald).Bold(true),
	err:   lipgloss.NewStyle().Foreground(redstone).Bold(true),
	warn:  lipgloss.NewStyle().Foreground(gold),
	help:  lipgloss.NewStyle().Foreground(stone).Italic(true),
}

// palette holds the styles shared by every view.
type palette struct {
	title lipgloss.Style
	stage lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}
