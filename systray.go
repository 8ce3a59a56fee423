package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/monitor"
	"github.com/dotside-studios/tapboard/nfc"
)

// TrayApp is the system tray frontend. Alerts land on a disabled menu line
// and in the log; session control happens through the Start/Stop items.
type TrayApp struct {
	controller *monitor.Controller
	logger     *zap.Logger

	mStatus *systray.MenuItem
	mAlert  *systray.MenuItem
	mStart  *systray.MenuItem
	mStop   *systray.MenuItem
	mQuit   *systray.MenuItem
}

// runTray runs the tray frontend. systray.Run must own the main goroutine,
// so the controller is attached from onReady.
func runTray(ctx context.Context, cfg *config.Config, cfgPath string, reader nfc.Reader, filter func(*nfc.TagInfo) bool, logger *zap.Logger) error {
	tray := &TrayApp{logger: logger.Named("tray")}

	ctrl := monitor.New(monitor.Config{
		Reader:    reader,
		Presenter: tray,
		AutoStart: cfg.AutoStartEnabled() && !noAutoStartFlag,
		Filter:    filter,
		Logger:    logger,
	})
	tray.controller = ctrl

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopWatch := watchConfig(cfgPath, ctrl, logger)
	defer stopWatch()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down on signal", zap.String("signal", sig.String()))
			systray.Quit()
		case <-ctx.Done():
		}
	}()

	onReady := func() {
		tray.setupMenu()
		ctrl.OnStateChange(tray.refresh)
		go tray.handleMenuEvents(ctx)
		go func() {
			if err := ctrl.Attach(ctx); err != nil {
				tray.ShowAlert(monitor.AlertForError(err))
			}
		}()
	}
	onExit := func() {
		ctrl.Detach()
	}

	systray.Run(onReady, onExit)
	return nil
}

func (t *TrayApp) setupMenu() {
	systray.SetTitle(buildinfo.DisplayName)
	systray.SetTooltip(buildinfo.Description)

	t.mStatus = systray.AddMenuItem("Starting...", "Reader status")
	t.mStatus.Disable()

	t.mAlert = systray.AddMenuItem("No alerts", "Last alert")
	t.mAlert.Disable()

	systray.AddSeparator()

	t.mStart = systray.AddMenuItem("Start listening", "Open a listening session")
	t.mStop = systray.AddMenuItem("Stop listening", "Close the listening session")
	t.mStart.Disable()
	t.mStop.Disable()

	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "Quit "+buildinfo.DisplayName)
}

func (t *TrayApp) handleMenuEvents(ctx context.Context) {
	for {
		select {
		case <-t.mStart.ClickedCh:
			if err := t.controller.StartListening(ctx); err != nil {
				t.ShowAlert(monitor.AlertForError(err))
			}
		case <-t.mStop.ClickedCh:
			if err := t.controller.StopListening(); err != nil {
				t.ShowAlert(monitor.AlertForError(err))
			}
		case <-t.mQuit.ClickedCh:
			systray.Quit()
			return
		case <-ctx.Done():
			return
		}
	}
}

// ShowAlert implements monitor.Presenter. Menu lines hold one line of
// text, so the body's first line is shown and the rest goes to the log.
func (t *TrayApp) ShowAlert(title, body string) {
	t.logger.Info("alert", zap.String("title", title), zap.String("body", body))
	firstLine, _, _ := strings.Cut(body, "\n")
	t.mAlert.SetTitle(title + ": " + firstLine)
}

func (t *TrayApp) refresh() {
	st := t.controller.State()
	t.mStatus.SetTitle(trayStatusText(st.NfcEnabled(), st.Listening()))
	setMenuItemEnabled(t.mStart, st.CanStart())
	setMenuItemEnabled(t.mStop, st.CanStop())
}

func trayStatusText(enabled, listening bool) string {
	if !enabled {
		return "NFC disabled"
	}
	if listening {
		return "Listening for tags"
	}
	return "NFC enabled, idle"
}

func setMenuItemEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}
