// Package ui renders the tap console as a terminal application: a status
// header, a scan log and the session controls, with capability alerts
// shown as modals.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/monitor"
)

// Page names within the root Pages primitive.
const (
	pageMonitor = "monitor"
	pageAlert   = "alert"
)

// Button order on the control form.
const (
	buttonStart = iota
	buttonStop
	buttonPublish
	buttonCancelPublish
	buttonQuit
)

// View is the tap console. It implements monitor.Presenter, so alerts
// raised by the controller appear as modals over the page.
type View struct {
	app   *tview.Application
	pages *tview.Pages

	status  *tview.TextView
	scanLog *tview.TextView
	form    *tview.Form

	controller *monitor.Controller
	logger     *zap.Logger
}

// New builds the console. Call Bind before Run so the controls have a
// controller to talk to.
func New(logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &View{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		logger: logger.Named("ui"),
	}

	v.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	v.status.SetBorder(true).SetTitle("Status")

	v.scanLog = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	v.scanLog.SetBorder(true).SetTitle("Scan log")

	v.form = tview.NewForm().
		AddInputField("Publish text", "", 40, nil, nil).
		AddButton("Start listening", v.onStart).
		AddButton("Stop listening", v.onStop).
		AddButton("Publish", v.onPublish).
		AddButton("Cancel publish", v.onCancelPublish).
		AddButton("Quit", v.quit)
	v.form.SetBorder(true).SetTitle("Controls")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.status, 5, 0, false).
		AddItem(v.scanLog, 0, 1, false).
		AddItem(v.form, 9, 0, true)

	v.pages.AddPage(pageMonitor, layout, true, true)

	// Escape leaves the page the same way the Quit button does.
	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			v.quit()
			return nil
		}
		return event
	})

	v.app.SetRoot(v.pages, true)
	v.renderStatus(false, false, "")
	return v
}

// Bind attaches the controller. The view re-renders on every state change
// from here on.
func (v *View) Bind(c *monitor.Controller) {
	v.controller = c
	c.OnStateChange(v.refresh)
}

// Run starts the terminal application and blocks until Stop or Quit.
func (v *View) Run() error {
	return v.app.Run()
}

// Stop terminates the terminal application.
func (v *View) Stop() {
	v.app.Stop()
}

// ShowAlert implements monitor.Presenter. The alert is appended to the
// scan log and raised as a modal; a newer alert replaces an undismissed
// older one. QueueUpdateDraw blocks until the event loop runs the update,
// so it is queued from a fresh goroutine; callers may be on the event
// loop themselves.
func (v *View) ShowAlert(title, body string) {
	v.logger.Info("alert", zap.String("title", title), zap.String("body", body))
	go v.app.QueueUpdateDraw(func() {
		v.appendLog(title, body)
		v.raiseAlert(title, body)
	})
}

// appendLog writes one alert line to the scan log. Runs on the
// application goroutine.
func (v *View) appendLog(title, body string) {
	fmt.Fprintf(v.scanLog, "[yellow]%s[-] %s\n",
		tview.Escape(title), tview.Escape(strings.ReplaceAll(body, "\n", " | ")))
	v.scanLog.ScrollToEnd()
}

// raiseAlert swaps in the alert modal. Runs on the application goroutine.
func (v *View) raiseAlert(title, body string) {
	modal := tview.NewModal().
		SetText(fmt.Sprintf("%s\n\n%s", tview.Escape(title), tview.Escape(body))).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			v.pages.RemovePage(pageAlert)
		})
	v.pages.AddPage(pageAlert, modal, true, true)
}

// refresh re-renders on the event loop. State change notifications can
// arrive on the event loop itself (a button starting a session emits
// synchronously), so the update is queued from a fresh goroutine.
func (v *View) refresh() {
	go v.app.QueueUpdateDraw(v.applyState)
}

// applyState re-renders everything derived from controller state. Runs on
// the application goroutine.
func (v *View) applyState() {
	if v.controller == nil {
		return
	}
	state := v.controller.State()
	v.renderStatus(state.NfcEnabled(), state.Listening(), state.LastTag())
	v.form.GetButton(buttonStart).SetDisabled(!state.CanStart())
	v.form.GetButton(buttonStop).SetDisabled(!state.CanStop())
	v.form.GetButton(buttonPublish).SetDisabled(!state.CanStop())
	v.form.GetButton(buttonCancelPublish).SetDisabled(!state.CanStop())
}

func (v *View) renderStatus(enabled, listening bool, lastTag string) {
	v.status.SetText(statusText(enabled, listening, lastTag))
}

// statusText renders the header lines for the given state.
func statusText(enabled, listening bool, lastTag string) string {
	var sb strings.Builder
	if enabled {
		sb.WriteString("NFC: [green]enabled[-]")
	} else {
		sb.WriteString("NFC: [red]disabled[-]")
	}
	if listening {
		sb.WriteString("\nSession: listening for tags")
	} else {
		sb.WriteString("\nSession: idle")
	}
	if lastTag != "" {
		sb.WriteString("\nLast tag: ")
		sb.WriteString(tview.Escape(lastTag))
	}
	return sb.String()
}

func (v *View) onStart() {
	if v.controller == nil {
		return
	}
	if err := v.controller.StartListening(context.Background()); err != nil {
		v.ShowAlert(monitor.AlertForError(err))
	}
}

func (v *View) onStop() {
	if v.controller == nil {
		return
	}
	if err := v.controller.StopListening(); err != nil {
		v.ShowAlert(monitor.AlertForError(err))
	}
}

func (v *View) onPublish() {
	if v.controller == nil {
		return
	}
	input := v.form.GetFormItem(0).(*tview.InputField)
	text := strings.TrimSpace(input.GetText())
	if text == "" {
		v.ShowAlert(monitor.TitlePublish, "Nothing to publish yet")
		return
	}
	if err := v.controller.PublishText(context.Background(), text); err != nil {
		v.ShowAlert(monitor.AlertForError(err))
		return
	}
	// Button handlers run on the event loop; mutate directly.
	input.SetText("")
	fmt.Fprintf(v.scanLog, "[blue]Publish[-] queued %q for the next tag\n", text)
	v.scanLog.ScrollToEnd()
}

func (v *View) onCancelPublish() {
	if v.controller == nil {
		return
	}
	if err := v.controller.StopPublishing(); err != nil {
		v.ShowAlert(monitor.AlertForError(err))
	}
}

// quit runs the leaving-the-page sequence and stops the application.
func (v *View) quit() {
	if v.controller != nil {
		v.controller.Detach()
	}
	v.app.Stop()
}
