// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through installing or launching an instance:
//  1. [InstanceListView] : Browse and select instances
//  2. [ConfirmView] : Choose between install and launch
//  3. [ProgressView] : Monitor stage and download progress
//  4. [GameView] : Wait for a launched game to exit
//  5. [ResultView] : Display the outcome or the error
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Stage updates are read from the [tasks.Bus] the pipeline publishes on, so the view never blocks the install.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, i, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
