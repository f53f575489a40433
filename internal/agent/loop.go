package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deskpilot/internal/action"
	"deskpilot/internal/config"
)

// ErrBusy is returned when a task is submitted while one is running.
// Concurrent submissions are rejected, not queued.
var ErrBusy = errors.New("a task is already running")

// apiErrorReply is the synthetic reply substituted when the model call
// itself fails. It parses into a terminating action; the run ends instead of
// burning the remaining step budget on a dead endpoint.
const apiErrorReply = `{"action":"done","message":"API Error"}`

type readState int8

const (
	readNone readState = iota
	readOK
	readFailed
)

// settle pauses give the desktop/page time to react before the next
// observation.
const (
	mouseSettle    = 200 * time.Millisecond
	clickSettle    = 300 * time.Millisecond
	navigateSettle = 500 * time.Millisecond
	scrollSettle   = 300 * time.Millisecond
	keySettle      = 100 * time.Millisecond
	commandSettle  = 500 * time.Millisecond
	waitPause      = 1 * time.Second
	stepPause      = 50 * time.Millisecond
	browserWarmup  = 1 * time.Second

	syncCommandTimeout       = 60 * time.Second
	powershellCommandTimeout = 120 * time.Second
)

// Effectors bundles the ports the loop dispatches to.
type Effectors struct {
	Model   ModelClient
	Desktop Desktop
	Browser Browser
	Windows WindowControl
	Docs    DocumentWriter
	Shell   Shell
	Files   FileReader
}

// Loop is the step-bounded dispatch state machine. One instance services one
// conversation; RunTask drives a single task on the calling goroutine, which
// is expected to be a worker distinct from the presentation side. All
// presentation updates flow through the event channel.
type Loop struct {
	cfg    config.AgentConfig
	logger *zap.Logger
	eff    Effectors
	events chan<- Event

	systemPrompt string

	conv     *Conversation
	failures *FailureTracker

	// Sticky per-step context. The mini-DOM refreshes after any action that
	// likely changed the page; page text and file content persist until
	// replaced so the model can refer back across several turns.
	miniDOM     string
	pageText    string
	fileContent string
	fileRead    readState

	stopRequested atomic.Bool
	running       atomic.Bool

	tokens         int
	screenshots    int
	lastScreenshot string

	taskID string
	step   int

	// sleep is a seam so tests do not spend wall-clock time on settles.
	sleep func(time.Duration)
}

// NewLoop wires a dispatch loop. events receives a snapshot after every
// log-worthy moment; the channel is consumed by the presentation goroutine.
func NewLoop(cfg config.AgentConfig, logger *zap.Logger, eff Effectors, events chan<- Event, systemPrompt string) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 30
	}
	return &Loop{
		cfg:          cfg,
		logger:       logger.Named("dispatch"),
		eff:          eff,
		events:       events,
		systemPrompt: systemPrompt,
		conv:         NewConversation(),
		failures:     NewFailureTracker(),
		sleep:        time.Sleep,
	}
}

// RequestStop asks the loop to stop cooperatively. The flag is observed at
// step boundaries; an in-flight model call or subprocess is not aborted.
func (l *Loop) RequestStop() {
	l.stopRequested.Store(true)
}

// Running reports whether a task is currently executing.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// SetSystemPrompt replaces the prompt used by the next fresh conversation.
// Must not be called while a task is running.
func (l *Loop) SetSystemPrompt(prompt string) {
	l.systemPrompt = prompt
}

// LastScreenshot returns the most recent capture for display or clipboard.
func (l *Loop) LastScreenshot() string {
	return l.lastScreenshot
}

// ResetContext discards the conversation, caches, failure counts and
// counters, as if the application had just started. Must not be called while
// a task is running.
func (l *Loop) ResetContext() {
	l.conv.Reset()
	l.clearEphemeral()
	l.tokens = 0
	l.screenshots = 0
}

func (l *Loop) clearEphemeral() {
	l.miniDOM = ""
	l.pageText = ""
	l.fileContent = ""
	l.fileRead = readNone
	l.failures.Reset()
}

// RunTask executes one task to a terminal state. fresh forces a new
// conversation even when one exists; otherwise the task continues the
// current one. Only one task may run at a time.
func (l *Loop) RunTask(ctx context.Context, task string, fresh bool) (Terminal, error) {
	if !l.running.CompareAndSwap(false, true) {
		return TerminalNone, ErrBusy
	}
	defer l.running.Store(false)
	l.stopRequested.Store(false)

	l.taskID = uuid.NewString()[:8]
	l.step = 0

	if l.conv.Empty() || fresh {
		l.conv.Start(l.systemPrompt, task)
		l.clearEphemeral()
		l.emit("fresh context")
	} else {
		l.conv.ContinueWith(task)
		l.emit("context retained")
	}

	// A native-window binding never survives across tasks.
	l.eff.Windows.Disconnect()

	pendingShot := ""
	terminal := TerminalStepLimit

steps:
	for l.step = 1; l.step <= l.cfg.MaxSteps; l.step++ {
		if l.stopRequested.Load() || ctx.Err() != nil {
			terminal = TerminalStopped
			break
		}

		l.emit("thinking...")

		prefix, suffix := l.augmentation(ctx)
		restore := l.conv.AugmentLast(prefix, suffix)
		started := time.Now()
		reply, err := l.eff.Model.Complete(ctx, l.conv.Messages(), pendingShot)
		l.tokens += (l.conv.ContentLen() + len(reply)) / 4
		restore()
		pendingShot = ""

		if err != nil {
			l.logger.Warn("model call failed", zap.Error(err))
			l.emit(fmt.Sprintf("model error: %v", err))
			reply = apiErrorReply
		}
		l.emit(fmt.Sprintf("model (%.1fs): %s", time.Since(started).Seconds(), reply))

		act := action.Parse(reply)
		l.dispatch(ctx, act, &pendingShot)

		if act.Kind == action.KindDone {
			msg := act.Message
			if msg == "" {
				msg = "finished"
			}
			l.emit("DONE: " + msg)
			terminal = TerminalDone
			break steps
		}
		if l.stopRequested.Load() {
			terminal = TerminalStopped
			break steps
		}

		l.conv.AppendTurn(reply)
		l.sleep(stepPause)
	}

	// On step-limit exit the loop variable overshoots the budget by one.
	if l.step > l.cfg.MaxSteps {
		l.step = l.cfg.MaxSteps
	}

	if terminal == TerminalStopped {
		l.emit("stopped")
	}

	l.emitTerminal(terminal, fmt.Sprintf("screenshots: %d", l.screenshots))
	return terminal, nil
}

// augmentation builds the transient context spliced around the last message
// for exactly one model call: failure warning as prefix, live environment
// observations as suffix.
func (l *Loop) augmentation(ctx context.Context) (prefix, suffix string) {
	if warn := l.failures.WarningText(); warn != "" {
		prefix = warn + "\n"
	}

	var b strings.Builder

	mx, my := l.eff.Desktop.MousePosition()
	w, h := l.eff.Desktop.ScreenSize()
	fmt.Fprintf(&b, "\n\nMouse: %d,%d | Screen: %dx%d", mx, my, w, h)

	var avail []string
	docx, xlsx, pptx := l.eff.Docs.Available()
	if docx {
		avail = append(avail, "create_docx")
	}
	if xlsx {
		avail = append(avail, "create_xlsx")
	}
	if pptx {
		avail = append(avail, "create_pptx")
	}
	if len(avail) > 0 {
		b.WriteString("\nAvailable document actions: " + strings.Join(avail, ", "))
	}

	if l.eff.Browser.Connected() {
		if title, err := l.eff.Browser.PageTitle(ctx); err == nil && title != "" {
			b.WriteString("\nBrowser: " + truncate(title, 50))
		}
		// Fetched lazily once per navigation, cached thereafter.
		if l.miniDOM == "" {
			l.refreshDOM(ctx)
		}
		if l.miniDOM != "" {
			b.WriteString("\n\nBROWSER ELEMENTS:\n" + l.miniDOM)
		}
	}

	if l.pageText != "" {
		b.WriteString("\n\nPAGE TEXT:\n" + truncate(l.pageText, l.cfg.PageTextPreview))
	}

	if l.fileContent != "" {
		b.WriteString("\n\nFILE CONTENT (read OK):\n" + truncate(l.fileContent, l.cfg.FilePreview))
		b.WriteString("\n\nThe data is visible - you may say 'done'.")
	} else if l.fileRead == readFailed {
		b.WriteString("\n\nWARNING: the last read_file FAILED! Do NOT say 'done'!")
	}

	return prefix, b.String()
}

// dispatch routes one action to its effector. No fault may escape a step:
// errors become logged outcomes and failure-tracker entries, and a panicking
// effector is contained here.
func (l *Loop) dispatch(ctx context.Context, act action.Action, pendingShot *string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("effector panic contained",
				zap.String("action", act.Name),
				zap.Any("panic_value", r),
				zap.Stack("stack"),
			)
			l.emit(fmt.Sprintf("action %s crashed: %v", act.Name, r))
		}
	}()

	switch act.Kind {
	case action.KindCreateDocx:
		l.emit("creating DOCX: " + act.Path)
		l.reportDoc(l.eff.Docs.CreateDocx(act.Path, act.Title, act.Content))

	case action.KindCreateXlsx:
		l.emit("creating XLSX: " + act.Path)
		l.reportDoc(l.eff.Docs.CreateXlsx(act.Path, act.SheetName, act.Data))

	case action.KindCreatePptx:
		l.emit("creating PPTX: " + act.Path)
		l.reportDoc(l.eff.Docs.CreatePptx(act.Path, act.Title, act.Slides))

	case action.KindMouseClick:
		button := act.Button
		if button == "" {
			button = "left"
		}
		err := l.eff.Desktop.Click(act.X, act.Y, button, act.DoubleClick)
		l.record(act, err, "mouse click")
		l.sleep(mouseSettle)

	case action.KindKey:
		if act.Key == "" {
			return
		}
		l.emit("key: " + act.Key)
		l.record(act, l.eff.Desktop.PressKey(act.Key), "key press")
		l.sleep(keySettle)

	case action.KindBrowserStart:
		l.emit("browser start: " + truncate(act.URL, 50))
		l.miniDOM = ""
		if err := l.eff.Browser.Start(ctx, act.URL); err != nil {
			l.record(act, err, "browser start")
			return
		}
		l.record(act, nil, "browser connected")
		l.sleep(browserWarmup)
		l.refreshDOM(ctx)
		l.emitDOMCount()

	case action.KindGetDOM:
		l.refreshDOM(ctx)
		l.emitDOMCount()

	case action.KindClick:
		err := l.eff.Browser.Click(ctx, act.Selector, act.Text)
		l.record(act, err, "browser click")
		l.sleep(clickSettle)
		l.refreshDOM(ctx)

	case action.KindType:
		l.record(act, l.eff.Browser.Fill(ctx, act.Selector, act.Text), "browser type")

	case action.KindGetText:
		selector := act.Selector
		if selector == "" {
			selector = "body"
		}
		txt, err := l.eff.Browser.Text(ctx, selector)
		if err != nil || txt == "" {
			l.record(act, fmt.Errorf("no text at %q: %v", selector, err), "page text")
			return
		}
		l.pageText = txt
		l.record(act, nil, fmt.Sprintf("page text: %d chars", len(txt)))

	case action.KindNavigate:
		if err := l.eff.Browser.Navigate(ctx, act.URL); err != nil {
			l.record(act, err, "navigate")
			return
		}
		l.record(act, nil, "navigate")
		l.sleep(navigateSettle)
		l.refreshDOM(ctx)
		l.emitDOMCount()

	case action.KindScroll:
		direction := act.Direction
		if direction == "" {
			direction = "down"
		}
		l.record(act, l.eff.Browser.Scroll(ctx, direction), "scroll "+direction)
		l.sleep(scrollSettle)
		l.refreshDOM(ctx)

	case action.KindRunCommands:
		l.runCommands(ctx, act.Commands)

	case action.KindReadFile:
		l.readFile(act)

	case action.KindWinConnect:
		l.record(act, l.eff.Windows.Connect(act.Title, act.TitlePattern), "window connect")

	case action.KindWinType:
		if act.Text == "" {
			return
		}
		l.emit("typing: " + truncate(act.Text, 30))
		text := strings.ReplaceAll(act.Text, `\n`, "\n")
		l.record(act, l.eff.Desktop.PasteType(text, act.AutoEnter), "window type")

	case action.KindScreenshot:
		b64, err := l.eff.Desktop.Capture()
		if err != nil {
			l.emit(fmt.Sprintf("screenshot failed: %v", err))
			return
		}
		*pendingShot = b64
		l.lastScreenshot = b64
		l.screenshots++
		l.emit(fmt.Sprintf("screenshot #%d", l.screenshots))

	case action.KindWait:
		l.emit("waiting")
		l.sleep(waitPause)

	case action.KindDone:
		// Terminal handling happens in the step loop.

	default:
		l.emit("unrecognized action: " + act.Name)
	}
}

// runCommands launches each command. Commands that redirect output to a file
// must finish before the file can be read back, so they run synchronously
// with a timeout; everything else is fire-and-forget.
func (l *Loop) runCommands(ctx context.Context, commands []string) {
	if len(commands) == 0 {
		return
	}
	l.emit(fmt.Sprintf("%d command(s)", len(commands)))
	for _, c := range commands {
		l.emit("  -> " + truncate(c, 60))
		if strings.Contains(c, "Out-File") || strings.Contains(c, " > ") {
			timeout := syncCommandTimeout
			if strings.Contains(strings.ToLower(c), "powershell") {
				timeout = powershellCommandTimeout
			}
			if err := l.eff.Shell.RunSync(ctx, c, timeout); err != nil {
				l.emit(fmt.Sprintf("  command failed: %v", err))
			} else {
				l.emit("  ok")
			}
			continue
		}
		if err := l.eff.Shell.RunDetached(c); err != nil {
			l.emit(fmt.Sprintf("  launch failed: %v", err))
		}
	}
	l.sleep(commandSettle)
}

// readFile reads a file into the sticky cache. A failed read clears the
// cache and raises the do-not-finish flag for subsequent prompts.
func (l *Loop) readFile(act action.Action) {
	l.emit("reading: " + act.Path)
	content, resolved, err := l.eff.Files.Read(act.Path)
	if err != nil {
		l.fileContent = ""
		l.fileRead = readFailed
		l.record(act, err, "read file")
		return
	}
	l.fileContent = content
	l.fileRead = readOK
	if resolved != act.Path {
		l.emit("resolved to: " + resolved)
	}
	l.emit(strings.Repeat("=", 70))
	l.emit(content)
	l.emit(strings.Repeat("=", 70))
	l.record(act, nil, fmt.Sprintf("read %d chars", len(content)))
}

// record folds an effector outcome into the failure tracker and the log.
func (l *Loop) record(act action.Action, err error, what string) {
	if err != nil {
		l.failures.RecordFailure(act)
		l.emit(fmt.Sprintf("%s failed: %v", what, err))
		return
	}
	l.failures.RecordSuccess(act)
	l.emit(what + " ok")
}

func (l *Loop) reportDoc(msg string, err error) {
	if err != nil {
		l.emit("failed: " + err.Error())
		return
	}
	l.emit(msg)
}

func (l *Loop) refreshDOM(ctx context.Context) {
	dom, err := l.eff.Browser.MiniDOM(ctx)
	if err != nil {
		l.miniDOM = ""
		return
	}
	l.miniDOM = dom
}

func (l *Loop) emitDOMCount() {
	if l.miniDOM == "" {
		l.emit("mini-DOM: empty")
		return
	}
	l.emit(fmt.Sprintf("mini-DOM: %d elements", strings.Count(l.miniDOM, "\n")+1))
}

func (l *Loop) emit(line string) {
	l.events <- Event{
		TaskID:      l.taskID,
		Step:        l.step,
		Line:        line,
		Tokens:      l.tokens,
		Screenshots: l.screenshots,
	}
}

func (l *Loop) emitTerminal(t Terminal, line string) {
	l.events <- Event{
		TaskID:      l.taskID,
		Step:        l.step,
		Line:        line,
		Tokens:      l.tokens,
		Screenshots: l.screenshots,
		Terminal:    t,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary so the cut never produces invalid UTF-8.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
