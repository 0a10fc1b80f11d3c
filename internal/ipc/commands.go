package ipc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tiroq/voiceplay/internal/transcript"
)

// Name identifies a daemon command.
type Name string

const (
	CmdPlay            Name = "play"
	CmdPause           Name = "pause"
	CmdToggle          Name = "toggle"
	CmdSeek            Name = "seek"             // <seconds|M:SS>
	CmdSkip            Name = "skip"             // <±seconds>
	CmdVolume          Name = "volume"           // <0-100>
	CmdRate            Name = "rate"             // <0.5-8>
	CmdJump            Name = "jump"             // <entry index>
	CmdLoadAudio       Name = "load-audio"       // <path>
	CmdLoadTranscript  Name = "load-transcript"  // <path>
	CmdClearTranscript Name = "clear-transcript"
	CmdRemoveAudio     Name = "remove-audio"
	CmdExport          Name = "export"           // <base path>
	CmdQuit            Name = "quit"
)

// argKind says what argument a command takes.
type argKind int

const (
	argNone argKind = iota
	argPosition
	argFloat
	argInt
	argPath
)

var commandArgs = map[Name]argKind{
	CmdPlay:            argNone,
	CmdPause:           argNone,
	CmdToggle:          argNone,
	CmdSeek:            argPosition,
	CmdSkip:            argFloat,
	CmdVolume:          argInt,
	CmdRate:            argFloat,
	CmdJump:            argInt,
	CmdLoadAudio:       argPath,
	CmdLoadTranscript:  argPath,
	CmdClearTranscript: argNone,
	CmdRemoveAudio:     argNone,
	CmdExport:          argPath,
	CmdQuit:            argNone,
}

// ErrInvalidCommand is returned for lines that do not parse.
var ErrInvalidCommand = errors.New("invalid command")

// Command is one request from voiceplay-ctl to the daemon.
type Command struct {
	Name Name
	Arg  string
}

func (c Command) String() string {
	if c.Arg == "" {
		return string(c.Name)
	}
	return string(c.Name) + " " + c.Arg
}

// Float returns the numeric argument; seek arguments may be M:SS.
func (c Command) Float() (float64, error) {
	if commandArgs[c.Name] == argPosition {
		return transcript.ParsePosition(c.Arg)
	}
	return strconv.ParseFloat(c.Arg, 64)
}

// Int returns the integer argument.
func (c Command) Int() (int, error) {
	return strconv.Atoi(c.Arg)
}

// ParseCommand parses one "name [arg]" line and checks the argument.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	cmd := Command{Name: Name(name), Arg: strings.TrimSpace(arg)}

	kind, ok := commandArgs[cmd.Name]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, name)
	}
	if kind == argNone {
		if cmd.Arg != "" {
			return Command{}, fmt.Errorf("%w: %s takes no argument", ErrInvalidCommand, name)
		}
		return cmd, nil
	}
	if cmd.Arg == "" {
		return Command{}, fmt.Errorf("%w: %s needs an argument", ErrInvalidCommand, name)
	}

	var err error
	switch kind {
	case argPosition, argFloat:
		_, err = cmd.Float()
	case argInt:
		_, err = cmd.Int()
	}
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidCommand, name, cmd.Arg, err)
	}
	return cmd, nil
}

// CacheDir is where the command and status files live.
func CacheDir() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "voiceplay")
}

// CommandPath is the file voiceplay-ctl writes and the daemon watches.
func CommandPath() string {
	return filepath.Join(CacheDir(), "cmd.txt")
}

// WriteCommand writes cmd to the command file for the daemon to pick up.
func WriteCommand(cmd Command) error {
	if _, err := ParseCommand(cmd.String()); err != nil {
		return err
	}
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return os.WriteFile(CommandPath(), []byte(cmd.String()+"\n"), 0644)
}

// ReadCommand reads and clears the command file. It returns a zero Command
// when nothing is pending, and ErrInvalidCommand for lines that do not
// parse; those are cleared as well so they are not retried.
func ReadCommand() (Command, error) {
	path := CommandPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Command{}, nil
		}
		return Command{}, err
	}
	if len(data) == 0 {
		return Command{}, nil
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return Command{}, err
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		return Command{}, nil
	}
	return ParseCommand(line)
}
