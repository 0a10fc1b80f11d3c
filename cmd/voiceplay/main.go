package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tiroq/voiceplay/internal/config"
	"github.com/tiroq/voiceplay/internal/diaglog"
	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/mediaws"
	"github.com/tiroq/voiceplay/internal/pidfile"
	"github.com/tiroq/voiceplay/internal/player"
	"github.com/tiroq/voiceplay/internal/upload"
	"github.com/tiroq/voiceplay/internal/validation"
	"github.com/tiroq/voiceplay/internal/watch"
)

const (
	logPrefix      = "[voiceplay]"
	statusInterval = 500 * time.Millisecond
	connectTimeout = 15 * time.Second
)

var (
	// Version is set at build time via -ldflags "-X main.Version=..."
	Version = "dev"

	outLog *log.Logger
	errLog *log.Logger
)

// hostInfo is the part of the media host client the status writer reads.
type hostInfo interface {
	IsConnected() bool
	Status() mediaws.Status
}

// app bundles what the command handler and status writer share.
type app struct {
	ctl  *player.Controller
	host hostInfo
	cfg  *config.Config
	diag *diaglog.Logger

	dirty    atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
}

func newApp(ctl *player.Controller, host hostInfo, cfg *config.Config, diag *diaglog.Logger) *app {
	return &app{ctl: ctl, host: host, cfg: cfg, diag: diag, quit: make(chan struct{})}
}

func (a *app) requestQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// hostEvent feeds an event reported by the media host to the controller.
func (a *app) hostEvent(e player.Event) {
	if err := a.ctl.Dispatch(e); err != nil {
		errLog.Printf("[EVENT] %s: %v", e.Kind, err)
	}
	a.dirty.Store(true)
}

// mediaStatusSource is the part of the media host client resync reads.
type mediaStatusSource interface {
	GetMediaStatus() (*mediaws.MediaStatus, error)
}

// resync asks the host for its element state after a reconnect, since
// events sent while the link was down are lost.
func (a *app) resync(host mediaStatusSource) error {
	defer a.dirty.Store(true)
	st, err := host.GetMediaStatus()
	if err != nil {
		return err
	}
	snap := a.ctl.Snapshot()
	if !snap.HasAudio() {
		return nil
	}
	if st.URL != string(snap.Handle) {
		return fmt.Errorf("media host no longer has %s loaded (has %q)", snap.Audio.Name, st.URL)
	}
	if st.Duration != snap.Duration {
		a.hostEvent(player.Event{Kind: player.EventMetadataLoaded, Value: st.Duration})
	}
	a.hostEvent(player.Event{Kind: player.EventTimeUpdate, Value: st.CurrentTime})
	if st.Paused && snap.IsPlaying {
		return a.ctl.Pause()
	}
	return nil
}

func diagLogPath() string {
	if p := os.Getenv("VOICEPLAY_LOG_PATH"); p != "" {
		return p
	}
	return "/tmp/voiceplay-debug.log"
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--export-diag" {
		diaglog.Version = Version
		path, n, err := diaglog.Export(diagLogPath(), ".")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			if os.IsNotExist(err) {
				fmt.Fprintln(os.Stderr, "hint: run with "+diaglog.EnvDebug+"=true to enable logging")
				os.Exit(1)
			}
			os.Exit(2)
		}
		fmt.Printf("Wrote: %s (%d lines)\n", path, n)
		os.Exit(0)
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC in voiceplay: %v\n", r)
			if errLog != nil {
				errLog.Printf("PANIC: %v", r)
			}
			os.Exit(1)
		}
	}()

	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	outLog.Println("===========================================")
	outLog.Println("Starting voiceplay v" + Version + "...")
	outLog.Printf("PID: %d", os.Getpid())
	outLog.Println("===========================================")

	if loaded, err := config.LoadDotEnv(); err != nil {
		errLog.Printf("[STARTUP] %v (continuing)", err)
	} else if len(loaded) > 0 {
		outLog.Printf("[STARTUP] Loaded environment from %v", loaded)
	}
	cfg, err := config.Load("")
	if err != nil {
		errLog.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	outLog.Printf("[STARTUP] Config: host=%s volume=%d rate=%g formats=%v",
		cfg.HostURL, cfg.Volume, cfg.PlaybackRate, cfg.ExportFormats)

	pidFilePath := pidfile.Location("voiceplay")
	pf, err := pidfile.Acquire(pidFilePath, pidfile.Record{HostURL: cfg.HostURL, Version: Version})
	if err != nil {
		errLog.Printf("Failed to create PID file: %v", err)
		errLog.Printf("If you're sure no other instance is running, remove: %s", pidFilePath)
		os.Exit(1)
	}
	defer func() {
		if err := pf.Release(); err != nil {
			errLog.Printf("Warning: failed to remove PID file: %v", err)
		}
	}()

	diaglog.Version = Version
	diag, err := diaglog.New(diagLogPath())
	if err != nil {
		errLog.Printf("[STARTUP] WARNING: could not open diagnostic log: %v (continuing)", err)
		diag = diaglog.NewNoOp()
	}
	defer func() { _ = diag.Close() }()

	host := mediaws.NewClient(cfg.HostURL, cfg.HostPassword)
	host.SetLogger(diag)
	host.SetRequestTimeout(cfg.RequestTimeoutDuration())
	host.SetReconnect(true, cfg.ReconnectDuration())

	outLog.Println("[STARTUP] Connecting to media host at " + cfg.HostURL + "...")
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	err = host.Connect(connectCtx)
	cancelConnect()
	if err != nil {
		errLog.Printf("[STARTUP] Failed to connect to media host: %v", err)
		for _, fix := range validation.SuggestedFixes(0, err.Error()) {
			errLog.Printf("  - %s", fix)
		}
		os.Exit(1)
	}
	defer func() {
		outLog.Println("[SHUTDOWN] Disconnecting from media host...")
		host.Disconnect()
	}()

	hs := host.Status()
	check := validation.CheckHost(hs.HostVersion, hs.RPCVersion)
	outLog.Printf("[STARTUP] %s", check.Message)
	if !check.OK {
		for _, issue := range check.Issues {
			errLog.Printf("  - %s", issue)
		}
		for _, fix := range check.Fixes {
			errLog.Printf("  fix: %s", fix)
		}
		errLog.Println("Continuing anyway, but playback may not work properly.")
	}

	handles := upload.NewRegistry()
	host.SetResolver(handles)
	ctl := player.NewController(host, handles, diag)
	a := newApp(ctl, host, cfg, diag)
	defer func() { _ = ctl.Close() }()

	if err := ctl.SetPlaybackRate(cfg.PlaybackRate); err != nil {
		errLog.Printf("[STARTUP] rate: %v", err)
	}
	if err := ctl.SetVolume(cfg.Volume); err != nil {
		errLog.Printf("[STARTUP] volume: %v", err)
	}

	host.OnTimeUpdate(func(t float64) {
		a.hostEvent(player.Event{Kind: player.EventTimeUpdate, Value: t})
	})
	host.OnMetadataLoaded(func(d float64) {
		outLog.Printf("[EVENT] Metadata loaded: duration=%.2fs", d)
		a.hostEvent(player.Event{Kind: player.EventMetadataLoaded, Value: d})
	})
	host.OnEnded(func() {
		outLog.Println("[EVENT] Playback ended")
		a.hostEvent(player.Event{Kind: player.EventEnded})
	})
	host.OnDisconnected(func() {
		errLog.Println("[EVENT] Media host disconnected - will attempt reconnection")
		a.dirty.Store(true)
	})
	host.OnReconnected(func() {
		outLog.Println("[EVENT] Media host reconnected")
		go func() {
			if err := a.resync(host); err != nil {
				errLog.Printf("[EVENT] Resync after reconnect: %v", err)
			}
		}()
	})

	if err := os.MkdirAll(ipc.CacheDir(), 0755); err != nil {
		errLog.Printf("Failed to create cache directory: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Transcript != "" {
		if err := a.loadTranscript(cfg.Transcript); err != nil {
			errLog.Printf("[STARTUP] transcript %s: %v (showing sample)", cfg.Transcript, err)
		}
		if cfg.ReloadTranscript {
			w := &watch.Watcher{
				Path: cfg.Transcript,
				Log:  diag,
				OnChange: func() {
					outLog.Printf("[WATCH] %s changed, re-importing", filepath.Base(cfg.Transcript))
					if err := a.loadTranscript(cfg.Transcript); err != nil {
						errLog.Printf("[WATCH] keeping previous transcript: %v", err)
					}
					a.dirty.Store(true)
				},
			}
			go func() { _ = w.Run(ctx) }()
		}
	}

	cmdWatcher := &watch.Watcher{
		Path:     ipc.CommandPath(),
		Log:      diag,
		OnChange: a.pollCommand,
	}
	go func() { _ = cmdWatcher.Run(ctx) }()

	if err := a.writeStatus(); err != nil {
		errLog.Printf("Failed to write initial status: %v", err)
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	outLog.Println("[RUNNING] voiceplay is running")
	for {
		select {
		case <-ticker.C:
			if a.dirty.Swap(false) {
				if err := a.writeStatus(); err != nil {
					errLog.Printf("Failed to write status: %v", err)
				}
			}
		case <-a.quit:
			outLog.Println("[SHUTDOWN] Quit command received")
			a.shutdown()
			return
		case sig := <-sigChan:
			outLog.Printf("[SHUTDOWN] Received %s", sig)
			a.shutdown()
			return
		}
	}
}

// shutdown pauses playback and publishes a final snapshot.
func (a *app) shutdown() {
	if a.ctl.Snapshot().IsPlaying {
		if err := a.ctl.Pause(); err != nil {
			errLog.Printf("[SHUTDOWN] pause: %v", err)
		}
	}
	if err := a.writeStatus(); err != nil {
		errLog.Printf("[SHUTDOWN] status: %v", err)
	}
	outLog.Println("[SHUTDOWN] Shutting down gracefully")
}

// initLogging sets up log files with rotation support
func initLogging() error {
	logDir := "/tmp"
	outLogPath := filepath.Join(logDir, "voiceplay.out.log")
	errLogPath := filepath.Join(logDir, "voiceplay.err.log")

	if err := rotateLogIfNeeded(outLogPath, 10*1024*1024); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rotate out log: %v\n", err)
	}
	if err := rotateLogIfNeeded(errLogPath, 10*1024*1024); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rotate err log: %v\n", err)
	}

	outFile, err := os.OpenFile(outLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	errFile, err := os.OpenFile(errLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	outLog = log.New(outFile, logPrefix+" ", log.LstdFlags)
	errLog = log.New(errFile, logPrefix+" ERROR: ", log.LstdFlags)
	return nil
}

// rotateLogIfNeeded renames logPath to logPath.old once it reaches maxSize.
func rotateLogIfNeeded(logPath string, maxSize int64) error {
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	oldPath := logPath + ".old"
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old log: %w", err)
	}
	return os.Rename(logPath, oldPath)
}
