package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InstanceListView ViewState = iota
	ConfirmView
	ProgressView
	GameView
	ResultView
)

// Action is what the TUI runs for the selected instance.
type Action int

const (
	ActionLaunch Action = iota
	ActionInstall
)

// maxLogLines is how many task messages the progress view keeps.
const maxLogLines = 6

// InstanceLister lists the instances to choose from. [instances.Store] satisfies it.
type InstanceLister interface {
	List() ([]*models.InstanceSettings, error)
}

// Launcher runs the install and launch flow. [pipeline.Pipeline] satisfies it.
type Launcher interface {
	Install(ctx context.Context, instance *models.InstanceSettings) (*launch.LaunchContext, error)
	Launch(ctx context.Context, instance *models.InstanceSettings) (<-chan launch.GameEvent, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	store        InstanceLister
	launcher     Launcher
	bus          *tasks.Bus
	width        int
	height       int
	instanceList list.Model
	selected     *models.InstanceSettings
	action       Action
	results      chan Msg
	update       tasks.ProgressUpdate
	log          []string
	pid          int
	exit         *launch.GameEvent
	err          error
	bar          progress.Model
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. bus must be the bus the launcher publishes on.
func NewModel(ctx context.Context, store InstanceLister, launcher Launcher, bus *tasks.Bus) *Model {
	return &Model{
		ctx:      ctx,
		view:     InstanceListView,
		store:    store,
		launcher: launcher,
		bus:      bus,
		bar:      progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the instance list.
func (m *Model) Init() tea.Cmd {
	return m.loadInstances()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 10)
		if m.instanceList.Width() == 0 {
			m.instanceList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InstanceListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != ProgressView && m.view != GameView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgInstancesLoaded:
		data := msg.data.(instancesLoaded)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.instances))
		for i, inst := range data.instances {
			items[i] = instanceItem{instance: inst}
		}
		m.instanceList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.instanceList.Title = "Instances"
		m.instanceList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgProgressUpdate:
		u := msg.data.(tasks.ProgressUpdate)
		if u.Data == nil && u.Total > 0 {
			m.update = u
		} else if u.Message != "" {
			m.appendLog(u.Message)
		}
		return m, m.waitForActivity()

	case MsgGameLaunched:
		ev := msg.data.(launch.GameEvent)
		m.pid = ev.PID
		m.view = GameView
		return m, m.waitForActivity()

	case MsgOperationComplete:
		data := msg.data.(operationComplete)
		m.exit = data.exit
		m.err = data.err
		m.results = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == InstanceListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case InstanceListView:
		return m.renderInstanceList()
	case ConfirmView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	case GameView:
		return m.renderGame()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.instanceList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.instanceList.SelectedItem().(instanceItem); ok {
				m.selected = item.instance
				m.view = ConfirmView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.instanceList, cmd = m.instanceList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InstanceListView
		return m, nil
	case key.Matches(msg, m.keys.install):
		return m, m.start(ActionInstall)
	case key.Matches(msg, m.keys.launch):
		return m, m.start(ActionLaunch)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, m.loadInstances()
	}
	return m, nil
}

func (m *Model) reset() {
	m.view = InstanceListView
	m.selected = nil
	m.update = tasks.ProgressUpdate{}
	m.log = nil
	m.pid = 0
	m.exit = nil
	m.err = nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != InstanceListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.instanceList, cmd = m.instanceList.Update(msg)
	return m, cmd
}

func (m *Model) loadInstances() tea.Cmd {
	return func() tea.Msg {
		instances, err := m.store.List()
		return instancesLoadedMsg(instances, err)
	}
}

// start runs the action in the background. Its outcome arrives on m.results.
func (m *Model) start(action Action) tea.Cmd {
	m.action = action
	m.view = ProgressView
	results := make(chan Msg, 2)
	m.results = results
	instance := m.selected

	go func() {
		if action == ActionInstall {
			_, err := m.launcher.Install(m.ctx, instance)
			results <- operationCompleteMsg(nil, err)
			return
		}

		events, err := m.launcher.Launch(m.ctx, instance)
		if err != nil {
			results <- operationCompleteMsg(nil, err)
			return
		}
		var exit *launch.GameEvent
		for ev := range events {
			if ev.Kind == launch.GameLaunched {
				results <- gameLaunchedMsg(ev)
				continue
			}
			exit = &ev
		}
		results <- operationCompleteMsg(exit, nil)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForActivity())
}

// waitForActivity returns the next bus update or operation message.
func (m *Model) waitForActivity() tea.Cmd {
	results := m.results
	if results == nil {
		return nil
	}
	var updates <-chan tasks.ProgressUpdate
	if m.bus != nil {
		updates = m.bus.Updates()
	}
	return func() tea.Msg {
		select {
		case msg := <-results:
			return msg
		case u, ok := <-updates:
			if !ok {
				return <-results
			}
			return progressUpdateMsg(u)
		}
	}
}

func (m *Model) helpView(v ViewState) string {
	return m.help.ShortHelpView(m.keys.bindings(v))
}

func (m *Model) renderInstanceList() string {
	helpView := m.helpView(InstanceListView)
	return fmt.Sprintf("%s\n\n%s", m.instanceList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(m.selected.Title)
	info := instanceItem{instance: m.selected}.Description()

	helpView := m.helpView(ConfirmView)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderProgress() string {
	verb := "Launching"
	if m.action == ActionInstall {
		verb = "Installing"
	}
	title := styles.title.Render(fmt.Sprintf("%s %s", verb, m.selected.Title))

	stage := "Preparing..."
	var percent float64
	if m.update.Total > 0 {
		stage = fmt.Sprintf("[%d/%d] %s", m.update.Step, m.update.Total, m.update.Message)
		percent = float64(m.update.Step-1) / float64(m.update.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s %s\n\n%s\n", title, m.spinner.View(), styles.stage.Render(stage), m.bar.ViewAs(percent))
	for _, line := range m.log {
		fmt.Fprintf(&b, "\n%s", styles.help.Render(line))
	}
	fmt.Fprintf(&b, "\n\n%s", m.helpView(ProgressView))
	return b.String()
}

func (m *Model) renderGame() string {
	title := styles.title.Render(fmt.Sprintf("%s is running", m.selected.Title))
	return fmt.Sprintf("%s\n%s pid %d, waiting for the game to exit", title, m.spinner.View(), m.pid)
}

func (m *Model) renderResult() string {
	helpView := m.helpView(ResultView)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("✗ %v", m.err)), helpView)
	}

	if m.exit == nil {
		return fmt.Sprintf("%s\n\n%s", styles.ok.Render(fmt.Sprintf("✓ %s installed", m.selected.Title)), helpView)
	}

	if m.exit.ExitCode != 0 || m.exit.Err != nil {
		msg := fmt.Sprintf("Game exited with code %d", m.exit.ExitCode)
		if m.exit.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, m.exit.Err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render(msg), helpView)
	}
	return fmt.Sprintf("%s\n\n%s", styles.ok.Render("✓ Game exited normally"), helpView)
}
