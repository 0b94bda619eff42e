// Package console implements the interactive terminal console for a
// pool run. It shows the worker roster, streams results and log lines,
// and dispatches pause, resume, and shutdown commands to the pool.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/scatter/internal/config"
	"github.com/zjrosen/scatter/internal/keys"
	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/pool"
	"github.com/zjrosen/scatter/internal/pubsub"
	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/ui/toaster"
	"github.com/zjrosen/scatter/internal/worker"
)

// Pool is the concrete pool type the console drives: shell commands in,
// execution results out.
type Pool = pool.Pool[string, runner.ExecResult]

const (
	defaultResultPoll = 100 * time.Millisecond
	toastDuration     = 3 * time.Second
)

// focusArea identifies which pane receives keyboard input.
type focusArea int

const (
	focusWorkers focusArea = iota
	focusResults
	focusLog
	focusInput
)

// Config holds everything the console needs to run.
type Config struct {
	Pool *Pool
	// ResultPoll overrides how often the sink is polled. Zero means the
	// default.
	ResultPoll time.Duration
	// ConfigFile is where the `set` command persists settings. Empty
	// disables the command.
	ConfigFile string
}

// Model is the root Bubble Tea model for the console.
type Model struct {
	pool *Pool

	workers workersModel
	results resultsModel
	logs    logModel
	input   inputModel
	help    helpModel
	toaster toaster.Model

	keymap    keys.KeyMap
	inputKeys keys.InputKeyMap

	focus        focusArea
	showHelp     bool
	showLog      bool
	spinnerFrame int
	// quitRequested marks that a graceful quit is underway. A second
	// quit terminates immediately.
	quitRequested bool
	finished      bool

	resultPoll time.Duration
	configFile string

	events      *pubsub.ContinuousListener[worker.Event]
	logListener *log.LogListener

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
}

// New creates the console model for a started pool.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())

	resultPoll := cfg.ResultPoll
	if resultPoll <= 0 {
		resultPoll = defaultResultPoll
	}

	return Model{
		pool:        cfg.Pool,
		workers:     newWorkersModel(),
		results:     newResultsModel(),
		logs:        newLogModel(),
		input:       newInputModel(),
		help:        newHelpModel(),
		toaster:     toaster.New(),
		keymap:      keys.DefaultKeyMap(),
		inputKeys:   keys.DefaultInputKeyMap(),
		showLog:     true,
		resultPoll:  resultPoll,
		configFile:  cfg.ConfigFile,
		events:      pubsub.NewContinuousListener(ctx, cfg.Pool.Events()),
		logListener: log.NewListener(ctx),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Cleanup cancels the event and log subscriptions. Call after the
// program exits.
func (m Model) Cleanup() {
	m.cancel()
}

// spinnerFrames defines the braille spinner animation sequence.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// === Internal message types ===

// pollTickMsg drives the once-per-interval sink poll.
type pollTickMsg struct{}

// spinnerTickMsg advances the spinner frame.
type spinnerTickMsg struct{}

// workersLoadedMsg carries a fresh pool listing.
type workersLoadedMsg struct {
	infos []pool.WorkerInfo
}

// logLineMsg is one formatted line from the log broker.
type logLineMsg string

// === Command generators ===

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.resultPoll, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// spinnerTick returns a command that sends spinnerTickMsg after 80ms.
func spinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m Model) loadWorkers() tea.Cmd {
	return func() tea.Msg {
		return workersLoadedMsg{infos: m.pool.List()}
	}
}

// listenLogs wraps the log listener so its lines arrive as logLineMsg
// instead of bare strings.
func (m Model) listenLogs() tea.Cmd {
	inner := m.logListener.Listen()
	return func() tea.Msg {
		v := inner()
		line, ok := v.(string)
		if !ok {
			return nil
		}
		return logLineMsg(line)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadWorkers(),
		m.pollTick(),
		spinnerTick(),
		m.events.Listen(),
	}
	if m.logListener != nil {
		cmds = append(cmds, m.listenLogs())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.layout(), nil

	case pollTickMsg:
		return m.handlePollTick()

	case spinnerTickMsg:
		if m.finished {
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTick()

	case workersLoadedMsg:
		m.workers = m.workers.SetRows(msg.infos)
		return m, nil

	case worker.Event:
		return m.handleWorkerEvent(msg)

	case logLineMsg:
		m.logs = m.logs.Append(string(msg))
		if m.logListener == nil {
			return m, nil
		}
		return m, m.listenLogs()

	case submitMsg:
		return m.handleCommand(string(msg))

	case toaster.DismissMsg:
		m.toaster = m.toaster.Hide()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m Model) View() string {
	view := m.renderView()

	if m.showHelp {
		view = m.help.Overlay(view)
	}

	view = m.toaster.Overlay(view)

	return zone.Scan(view)
}

// === Event handlers ===

// handlePollTick runs one console iteration: a single sink poll, a
// roster refresh, and the liveness check. When no workers remain the
// sink is drained and the program quits.
func (m Model) handlePollTick() (tea.Model, tea.Cmd) {
	if m.finished {
		return m, nil
	}

	if res, ok := m.pool.Sink().Poll(); ok {
		m.results = m.results.Append(res)
	}

	m.workers = m.workers.SetRows(m.pool.List())

	if m.pool.Live() == 0 {
		for _, res := range m.pool.Sink().Drain() {
			m.results = m.results.Append(res)
		}
		m.finished = true
		return m, tea.Quit
	}

	return m, m.pollTick()
}

func (m Model) handleWorkerEvent(evt worker.Event) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch evt.Type {
	case worker.EventResult:
		m.workers = m.workers.SetLastTask(evt.Worker, evt.Info)

	case worker.EventExited:
		switch evt.Reason {
		case worker.ExitSetupFailed, worker.ExitJobFailed:
			m.toaster = m.toaster.Show(fmt.Sprintf("%s: %s", evt.Worker, evt.Info), toaster.StyleError)
			cmd = toaster.ScheduleDismiss(toastDuration)
		}
	}
	return m, tea.Batch(cmd, m.events.Listen())
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The help overlay swallows keys until dismissed.
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keymap.Help), key.Matches(msg, m.keymap.Escape):
			m.showHelp = false
		case key.Matches(msg, m.keymap.Quit):
			return m.quit()
		}
		return m, nil
	}

	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m.quit()

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
		m.help = m.help.SetSize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keymap.CycleFocus):
		m.focus = m.nextFocus()
		return m.syncFocus(), nil

	case key.Matches(msg, m.keymap.FocusInput):
		m.focus = focusInput
		m = m.syncFocus()
		var cmd tea.Cmd
		m.input, cmd = m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keymap.Escape):
		m.focus = focusWorkers
		return m.syncFocus(), nil

	case key.Matches(msg, m.keymap.ToggleLog):
		m.showLog = !m.showLog
		if !m.showLog && m.focus == focusLog {
			m.focus = focusWorkers
		}
		return m.syncFocus().layout(), nil

	case key.Matches(msg, m.keymap.Terminate):
		m.pool.Terminate()
		return m.toast("all workers terminated", toaster.StyleWarn)
	}

	// Remaining keys go to the focused pane.
	switch m.focus {
	case focusWorkers:
		return m.handleWorkerKey(msg)
	case focusResults:
		return m.handleResultsKey(msg)
	case focusLog:
		return m.handleLogKey(msg)
	}
	return m, nil
}

func (m Model) handleWorkerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Up):
		m.workers = m.workers.MoveUp()
	case key.Matches(msg, m.keymap.Down):
		m.workers = m.workers.MoveDown()
	case key.Matches(msg, m.keymap.Top):
		m.workers = m.workers.Select(0)
	case key.Matches(msg, m.keymap.Bottom):
		m.workers = m.workers.Select(m.workers.Count() - 1)
	case key.Matches(msg, m.keymap.Toggle):
		return m.toggleSelectedWorker()
	case key.Matches(msg, m.keymap.End):
		return m.endSelectedWorker()
	}
	return m, nil
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Top):
		m.results = m.results.GotoTop()
		return m, nil
	case key.Matches(msg, m.keymap.Bottom):
		m.results = m.results.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Top):
		m.logs = m.logs.GotoTop()
		return m, nil
	case key.Matches(msg, m.keymap.Bottom):
		m.logs = m.logs.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logs, cmd = m.logs.Update(msg)
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.inputKeys.Quit):
		return m.quit()
	case key.Matches(msg, m.inputKeys.Blur):
		m.focus = focusWorkers
		return m.syncFocus(), nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease {
		for i := 0; i < m.workers.Count(); i++ {
			if z := zone.Get(makeWorkerZoneID(i)); z != nil && z.InBounds(msg) {
				alreadySelected := m.workers.selected == i && m.focus == focusWorkers
				m.workers = m.workers.Select(i)
				m.focus = focusWorkers
				m = m.syncFocus()
				if alreadySelected {
					return m.toggleSelectedWorker()
				}
				return m, nil
			}
		}
		if z := zone.Get(zoneCommandInput); z != nil && z.InBounds(msg) {
			m.focus = focusInput
			m = m.syncFocus()
			var cmd tea.Cmd
			m.input, cmd = m.input.Focus()
			return m, cmd
		}
		return m, nil
	}

	// Wheel events scroll the focused pane.
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		switch m.focus {
		case focusResults:
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd
		case focusLog:
			var cmd tea.Cmd
			m.logs, cmd = m.logs.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// handleCommand routes one typed command through the pool, mirroring
// the plain console's verb table. Outcomes surface as toasts.
func (m Model) handleCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return m, nil
	}
	verb, args := fields[0], fields[1:]

	log.Debug(log.CatUI, "Dispatching console command", "verb", verb)

	switch verb {
	case "list":
		m.workers = m.workers.SetRows(m.pool.List())
		return m.toast(fmt.Sprintf("%d workers", m.workers.Count()), toaster.StyleInfo)

	case "quit":
		m.quitRequested = true
		n := m.pool.Quit()
		return m.toast(fmt.Sprintf("end sent to %d workers", n), toaster.StyleInfo)

	case "terminate":
		m.pool.Terminate()
		return m.toast("all workers terminated", toaster.StyleWarn)

	case "enable":
		return m.postCommand(verb, args, m.pool.Enable)

	case "disable":
		return m.postCommand(verb, args, m.pool.Disable)

	case "end":
		return m.postCommand(verb, args, m.pool.End)

	case "status":
		return m.toast(m.pool.Stats().FormatSummary(), toaster.StyleInfo)

	case "set":
		return m.handleSet(args)

	case "help":
		m.showHelp = true
		m.help = m.help.SetSize(m.width, m.height)
		return m, nil

	default:
		return m.toast(fmt.Sprintf("unknown command %q (try help)", verb), toaster.StyleError)
	}
}

// postCommand runs a single-worker pool operation and reports the
// outcome as a toast.
func (m Model) postCommand(verb string, args []string, post func(string) error) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		return m.toast(fmt.Sprintf("usage: %s <name>", verb), toaster.StyleWarn)
	}
	name := args[0]
	if err := post(name); err != nil {
		log.Warn(log.CatUI, "Console command failed", "verb", verb, "worker", name, "error", err)
		return m.toast(fmt.Sprintf("%s %s: %v", verb, name, err), toaster.StyleError)
	}
	return m.toast(fmt.Sprintf("%s %s", verb, name), toaster.StyleSuccess)
}

// handleSet persists one setting to the config file for future runs.
// The running pool keeps its current configuration.
func (m Model) handleSet(args []string) (tea.Model, tea.Cmd) {
	if len(args) != 2 {
		return m.toast("usage: set <key> <value>", toaster.StyleWarn)
	}
	if m.configFile == "" {
		return m.toast("no config file loaded", toaster.StyleWarn)
	}
	key, value := args[0], args[1]
	if err := config.SaveSetting(m.configFile, key, value); err != nil {
		log.Warn(log.CatUI, "Saving setting failed", "key", key, "error", err)
		return m.toast(fmt.Sprintf("set %s: %v", key, err), toaster.StyleError)
	}
	return m.toast(fmt.Sprintf("saved %s=%s for the next run", key, value), toaster.StyleSuccess)
}

// toggleSelectedWorker pauses a running worker or resumes a paused one.
func (m Model) toggleSelectedWorker() (tea.Model, tea.Cmd) {
	row, ok := m.workers.Selected()
	if !ok {
		return m, nil
	}

	action := "paused"
	post := m.pool.Disable
	if row.state == worker.StatePaused {
		action = "resumed"
		post = m.pool.Enable
	}

	if err := post(row.name); err != nil {
		return m.toast(fmt.Sprintf("%s: %v", row.name, err), toaster.StyleError)
	}
	return m.toast(fmt.Sprintf("%s %s", row.name, action), toaster.StyleInfo)
}

// endSelectedWorker asks the selected worker to exit after its current
// task.
func (m Model) endSelectedWorker() (tea.Model, tea.Cmd) {
	row, ok := m.workers.Selected()
	if !ok {
		return m, nil
	}
	if err := m.pool.End(row.name); err != nil {
		return m.toast(fmt.Sprintf("%s: %v", row.name, err), toaster.StyleError)
	}
	return m.toast(fmt.Sprintf("%s ending after current task", row.name), toaster.StyleInfo)
}

// quit asks all workers to finish up; the program exits through the
// normal liveness check. A second quit terminates immediately.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitRequested || m.finished {
		m.pool.Terminate()
		return m, tea.Quit
	}
	m.quitRequested = true
	m.pool.Quit()
	return m.toast("finishing in-flight tasks (q again to force)", toaster.StyleInfo)
}

func (m Model) toast(text string, style toaster.Style) (Model, tea.Cmd) {
	m.toaster = m.toaster.Show(text, style)
	return m, toaster.ScheduleDismiss(toastDuration)
}

// === Layout ===

// layout pushes the current terminal size down into every pane.
func (m Model) layout() Model {
	if m.width == 0 || m.height == 0 {
		return m
	}

	contentHeight := max(m.height-headerHeight-inputPaneHeight-footerHeight, 5)

	workersWidth := workersPaneWidth
	if m.width < workersPaneWidth*2 {
		workersWidth = max(m.width/2, 20)
	}
	rightWidth := max(m.width-workersWidth, 20)

	logHeight := 0
	if m.showLog {
		logHeight = min(logPaneMaxHeight, contentHeight/3)
		if logHeight < 4 {
			logHeight = 0
		}
	}
	resultsHeight := contentHeight - logHeight

	m.workers = m.workers.SetSize(workersWidth, contentHeight)
	m.results = m.results.SetSize(rightWidth, resultsHeight)
	m.logs = m.logs.SetSize(rightWidth, logHeight)
	m.input = m.input.SetSize(m.width, inputPaneHeight)
	m.toaster = m.toaster.SetSize(m.width, m.height)
	m.help = m.help.SetSize(m.width, m.height)
	return m
}

// nextFocus cycles through the visible panes.
func (m Model) nextFocus() focusArea {
	order := []focusArea{focusWorkers, focusResults}
	if m.showLog {
		order = append(order, focusLog)
	}
	order = append(order, focusInput)

	for i, f := range order {
		if f == m.focus {
			return order[(i+1)%len(order)]
		}
	}
	return focusWorkers
}

// syncFocus pushes the focus flag into each pane and blurs the input
// when focus moves elsewhere.
func (m Model) syncFocus() Model {
	m.workers = m.workers.SetFocused(m.focus == focusWorkers)
	m.results = m.results.SetFocused(m.focus == focusResults)
	m.logs = m.logs.SetFocused(m.focus == focusLog)
	if m.focus != focusInput {
		m.input = m.input.Blur()
	}
	return m
}
