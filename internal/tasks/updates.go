package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchManifest Phase = iota
	FetchJava
	FetchClient
	FetchAssets
	InstallLoader
	InstallMods
	FetchLibraries
	FetchLogConfig
	LaunchGame
	InstallModPack
	UninstallMods
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchManifest:
		return "fetch_manifest"
	case FetchJava:
		return "fetch_java"
	case FetchClient:
		return "fetch_client"
	case FetchAssets:
		return "fetch_assets"
	case InstallLoader:
		return "install_loader"
	case InstallMods:
		return "install_mods"
	case FetchLibraries:
		return "fetch_libraries"
	case FetchLogConfig:
		return "fetch_log_config"
	case LaunchGame:
		return "launch_game"
	case InstallModPack:
		return "install_modpack"
	case UninstallMods:
		return "uninstall_mods"
	case Done:
		return "done"
	default:
		return ""
	}
}

// Send sends an update through the channel without blocking.
func Send(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// StageUpdate announces the start of a pipeline stage.
func StageUpdate(phase Phase, step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

// RunnerUpdate converts runner progress into a phase update.
func RunnerUpdate(phase Phase, p Progress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    p.Completed,
		Total:   p.Total,
		Message: fmt.Sprintf("[%d/%d] %s", p.Completed, p.Total, phase),
		Data:    p,
	}
}

// TaskUpdate reports a single task transition within phase.
func TaskUpdate(phase Phase, e Event) ProgressUpdate {
	msg := fmt.Sprintf("%s (%s)", e.Name, e.State)
	switch e.State {
	case Finished:
		msg = fmt.Sprintf("✓ %s", e.Name)
	case Failed:
		msg = fmt.Sprintf("✗ %s: %v", e.Name, e.Err)
	}
	return ProgressUpdate{
		Phase:   phase,
		Message: msg,
		Data:    e,
	}
}

// DoneUpdate reports completion of the whole operation.
func DoneUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: Done, Message: message}
}
