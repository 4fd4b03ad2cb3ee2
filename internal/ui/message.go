package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgInstancesLoaded MsgKind = iota
	MsgProgressUpdate
	MsgGameLaunched
	MsgOperationComplete
)

type instancesLoaded struct {
	instances []*models.InstanceSettings
	err       error
}

type operationComplete struct {
	exit *launch.GameEvent
	err  error
}

// instancesLoadedMsg is the constructor for [MsgInstancesLoaded]
func instancesLoadedMsg(instances []*models.InstanceSettings, err error) Msg {
	return Msg{kind: MsgInstancesLoaded, data: instancesLoaded{instances, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// gameLaunchedMsg is the constructor for [MsgGameLaunched]
func gameLaunchedMsg(ev launch.GameEvent) Msg {
	return Msg{kind: MsgGameLaunched, data: ev}
}

// operationCompleteMsg is the constructor for [MsgOperationComplete]. exit is nil for install-only runs.
func operationCompleteMsg(exit *launch.GameEvent, err error) Msg {
	return Msg{kind: MsgOperationComplete, data: operationComplete{exit, err}}
}
