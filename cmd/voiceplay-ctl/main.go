package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/tiroq/voiceplay/internal/config"
	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/pidfile"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

var errNotRunning = errors.New("voiceplay is not running (start the daemon first)")

type empty struct{}

type statusCmd struct {
	JSON bool `arg:"--json" help:"print the raw status snapshot"`
}

type positionCmd struct {
	Position string `arg:"positional,required" help:"seconds or M:SS"`
}

type skipCmd struct {
	Seconds float64 `arg:"positional,required" help:"seconds to move; use -- before negative values"`
	Back    bool    `arg:"-b,--back" help:"move backwards"`
}

type volumeCmd struct {
	Level int `arg:"positional,required" help:"0-100"`
}

type rateCmd struct {
	Rate float64 `arg:"positional,required" help:"0.5-8"`
}

type jumpCmd struct {
	Index int `arg:"positional,required" help:"transcript entry index, from 0"`
}

type pathCmd struct {
	Path string `arg:"positional,required"`
}

type exportCmd struct {
	Dest       string   `arg:"positional" help:"directory or base path; defaults to export_dir from the config"`
	Offline    bool     `arg:"--offline" help:"export without the daemon"`
	Transcript string   `arg:"--transcript" help:"transcript file for --offline; the sample when empty"`
	Duration   float64  `arg:"--duration" help:"audio length used to close the last entry for --offline"`
	Formats    []string `arg:"--format,separate" help:"txt, srt, vtt or json; repeatable"`
}

type lookupCmd struct {
	Position   string `arg:"positional,required" help:"seconds or M:SS"`
	Transcript string `arg:"--transcript" help:"transcript file; the sample when empty"`
}

type formatCmd struct {
	Seconds float64 `arg:"positional,required"`
}

type parseCmd struct {
	Timestamp string `arg:"positional,required" help:"M:SS"`
}

type args struct {
	Status          *statusCmd   `arg:"subcommand:status" help:"print the daemon status"`
	Play            *empty       `arg:"subcommand:play"`
	Pause           *empty       `arg:"subcommand:pause"`
	Toggle          *empty       `arg:"subcommand:toggle" help:"play or pause"`
	Seek            *positionCmd `arg:"subcommand:seek" help:"move to a position"`
	Skip            *skipCmd     `arg:"subcommand:skip" help:"move relative to the current position"`
	Volume          *volumeCmd   `arg:"subcommand:volume"`
	Rate            *rateCmd     `arg:"subcommand:rate" help:"playback rate"`
	Jump            *jumpCmd     `arg:"subcommand:jump" help:"seek to the start of a transcript entry"`
	LoadAudio       *pathCmd     `arg:"subcommand:load-audio" help:"play an audio file"`
	RemoveAudio     *empty       `arg:"subcommand:remove-audio"`
	LoadTranscript  *pathCmd     `arg:"subcommand:load-transcript" help:"import a JSON transcript"`
	ClearTranscript *empty       `arg:"subcommand:clear-transcript" help:"show the sample transcript again"`
	Export          *exportCmd   `arg:"subcommand:export" help:"write the transcript as txt/srt/vtt/json"`
	Quit            *empty       `arg:"subcommand:quit" help:"stop the daemon"`
	TUI             *empty       `arg:"subcommand:tui" help:"interactive player view"`

	Lookup   *lookupCmd `arg:"subcommand:lookup" help:"print the entry active at a position"`
	Format   *formatCmd `arg:"subcommand:format" help:"seconds to M:SS"`
	Parse    *parseCmd  `arg:"subcommand:parse" help:"M:SS to seconds"`
	Validate *pathCmd   `arg:"subcommand:validate" help:"check a transcript file"`
}

func (args) Version() string {
	return "voiceplay-ctl " + Version
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses argv and executes one subcommand. It returns the exit code.
func run(argv []string, stdout, stderr io.Writer) int {
	var a args
	p, err := arg.NewParser(arg.Config{Program: "voiceplay-ctl"}, &a)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	switch err := p.Parse(argv); {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(stdout)
		return 0
	case errors.Is(err, arg.ErrVersion):
		fmt.Fprintln(stdout, a.Version())
		return 0
	case err != nil:
		p.WriteUsage(stderr)
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	if p.Subcommand() == nil {
		p.WriteHelp(stderr)
		return 2
	}

	if err := dispatch(&a, stdout); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func dispatch(a *args, out io.Writer) error {
	switch {
	case a.Status != nil:
		return printStatus(out, a.Status.JSON)
	case a.Play != nil:
		return send(ipc.CmdPlay, "")
	case a.Pause != nil:
		return send(ipc.CmdPause, "")
	case a.Toggle != nil:
		return send(ipc.CmdToggle, "")
	case a.Seek != nil:
		return send(ipc.CmdSeek, a.Seek.Position)
	case a.Skip != nil:
		d := a.Skip.Seconds
		if a.Skip.Back {
			d = -d
		}
		return send(ipc.CmdSkip, strconv.FormatFloat(d, 'f', -1, 64))
	case a.Volume != nil:
		return send(ipc.CmdVolume, strconv.Itoa(a.Volume.Level))
	case a.Rate != nil:
		return send(ipc.CmdRate, strconv.FormatFloat(a.Rate.Rate, 'f', -1, 64))
	case a.Jump != nil:
		return send(ipc.CmdJump, strconv.Itoa(a.Jump.Index))
	case a.LoadAudio != nil:
		return sendPath(ipc.CmdLoadAudio, a.LoadAudio.Path)
	case a.RemoveAudio != nil:
		return send(ipc.CmdRemoveAudio, "")
	case a.LoadTranscript != nil:
		return sendPath(ipc.CmdLoadTranscript, a.LoadTranscript.Path)
	case a.ClearTranscript != nil:
		return send(ipc.CmdClearTranscript, "")
	case a.Export != nil:
		return runExport(out, a.Export)
	case a.Quit != nil:
		return send(ipc.CmdQuit, "")
	case a.TUI != nil:
		if !daemonRunning() {
			return errNotRunning
		}
		return runTUI()
	case a.Lookup != nil:
		return runLookup(out, a.Lookup)
	case a.Format != nil:
		return runFormat(out, a.Format.Seconds)
	case a.Parse != nil:
		return runParse(out, a.Parse.Timestamp)
	case a.Validate != nil:
		return runValidate(out, a.Validate.Path)
	}
	return errors.New("no command given")
}

// daemon returns the running daemon's PID record, if there is one.
func daemon() (pidfile.Record, bool) {
	return pidfile.Running(pidfile.Location("voiceplay"))
}

func daemonRunning() bool {
	_, ok := daemon()
	return ok
}

// send hands one command to the daemon through the command file.
func send(name ipc.Name, arg string) error {
	if !daemonRunning() {
		return errNotRunning
	}
	return ipc.WriteCommand(ipc.Command{Name: name, Arg: arg})
}

// sendPath resolves path against the working directory first; the daemon
// has its own.
func sendPath(name ipc.Name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	return send(name, abs)
}

func runExport(out io.Writer, c *exportCmd) error {
	if c.Offline {
		return exportOffline(out, c)
	}
	dest := c.Dest
	if dest == "" {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		dest = cfg.ExportDir
	}
	if dest == "" {
		dest = "."
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := send(ipc.CmdExport, abs); err != nil {
		return err
	}
	fmt.Fprintf(out, "Export requested: %s\n", abs)
	return nil
}

func printStatus(out io.Writer, raw bool) error {
	st, err := ipc.ReadStatus()
	if err != nil {
		if os.IsNotExist(err) {
			return errNotRunning
		}
		return err
	}
	if raw {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	rec, running := daemon()
	fmt.Fprint(out, renderStatus(st, rec, running, time.Now()))
	return nil
}
