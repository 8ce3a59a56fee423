package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/config"
	"github.com/dotside-studios/tapboard/logging"
	"github.com/dotside-studios/tapboard/monitor"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/ui"
)

// loadConfig reads the YAML config and layers the CLI flags on top.
func loadConfig() (*config.Config, string, error) {
	path := cfgFileFlag
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", err
	}

	if agentURLFlag != "" {
		cfg.Agent.URL = agentURLFlag
	}
	if secretFlag != "" {
		cfg.Agent.Secret = secretFlag
	}
	if simFlag {
		cfg.Sim.Enabled = true
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runApp(ctx context.Context) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Both frontends own the terminal or the tray, so logs go to a file.
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = logging.DefaultPath()
	}
	logger, err := logging.New(cfg.Logging.Level, logPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.String("version", buildinfo.FullVersion()),
		zap.String("config", cfgPath))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader, cleanup, err := buildReader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	filter, err := cfg.TagFilter()
	if err != nil {
		return err
	}

	if trayFlag {
		return runTray(ctx, cfg, cfgPath, reader, filter, logger)
	}
	return runConsole(ctx, cfg, cfgPath, reader, filter, logger)
}

// runConsole runs the tview frontend. It blocks until the user quits or a
// termination signal arrives.
func runConsole(ctx context.Context, cfg *config.Config, cfgPath string, reader nfc.Reader, filter func(*nfc.TagInfo) bool, logger *zap.Logger) error {
	view := ui.New(logger)

	ctrl := monitor.New(monitor.Config{
		Reader:    reader,
		Presenter: view,
		AutoStart: cfg.AutoStartEnabled() && !noAutoStartFlag,
		Filter:    filter,
		Logger:    logger,
	})
	view.Bind(ctrl)

	stopWatch := watchConfig(cfgPath, ctrl, logger)
	defer stopWatch()

	// The view owns the terminal, so signals tear the app down instead of
	// printing anything.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down on signal", zap.String("signal", sig.String()))
			view.Stop()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := ctrl.Attach(ctx); err != nil {
			logger.Warn("attach failed", zap.Error(err))
			view.ShowAlert(monitor.AlertForError(err))
		}
	}()

	err := view.Run()
	ctrl.Detach()
	return err
}

// watchConfig reloads the config file on change and applies what is safe
// to take live: the tag filters. Backend settings need a restart.
func watchConfig(path string, ctrl *monitor.Controller, logger *zap.Logger) func() {
	w, err := config.NewWatcher(path, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
		return func() {}
	}
	if err := w.Start(); err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
		return func() {}
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case cfg := <-w.Changes():
				filter, err := cfg.TagFilter()
				if err != nil {
					logger.Warn("config reload: keeping old filters", zap.Error(err))
					continue
				}
				ctrl.SetFilter(filter)
				logger.Info("tag filters reloaded")
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		w.Stop()
	}
}
