package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/player"
	"github.com/tiroq/voiceplay/internal/upload"
)

// pollCommand reads the pending command, if any, and runs it.
func (a *app) pollCommand() {
	cmd, err := ipc.ReadCommand()
	if err != nil {
		errLog.Printf("Ignoring command: %v", err)
		return
	}
	if cmd.Name == "" {
		return
	}
	if err := a.handleCommand(cmd); err != nil {
		errLog.Printf("Command %q failed: %v", cmd, err)
	}
	a.dirty.Store(true)
	if err := a.writeStatus(); err != nil {
		errLog.Printf("Failed to write status after command: %v", err)
	}
}

// commandEvents maps the transport commands onto controller events.
var commandEvents = map[ipc.Name]player.EventKind{
	ipc.CmdToggle:          player.EventToggle,
	ipc.CmdSeek:            player.EventSeek,
	ipc.CmdSkip:            player.EventSkip,
	ipc.CmdVolume:          player.EventVolume,
	ipc.CmdRate:            player.EventRate,
	ipc.CmdClearTranscript: player.EventClearTranscript,
	ipc.CmdRemoveAudio:     player.EventRemoveAudio,
}

// commandEvent converts cmd to a controller event. ok is false for
// commands that are not plain transitions.
func commandEvent(cmd ipc.Command) (e player.Event, ok bool, err error) {
	kind, ok := commandEvents[cmd.Name]
	if !ok {
		return player.Event{}, false, nil
	}
	e.Kind = kind
	if cmd.Arg != "" {
		if e.Value, err = cmd.Float(); err != nil {
			return player.Event{}, true, err
		}
	}
	return e, true, nil
}

// handleCommand processes one control command. Failures are reported to
// the caller and recorded in the controller's last error; none are fatal.
func (a *app) handleCommand(cmd ipc.Command) error {
	outLog.Printf("Received command: %s", cmd)

	if e, ok, err := commandEvent(cmd); ok {
		if err != nil {
			return err
		}
		return a.ctl.Dispatch(e)
	}

	switch cmd.Name {
	case ipc.CmdPlay:
		return a.ctl.Play()
	case ipc.CmdPause:
		return a.ctl.Pause()
	case ipc.CmdJump:
		i, err := cmd.Int()
		if err != nil {
			return err
		}
		return a.ctl.JumpTo(i)

	case ipc.CmdLoadAudio:
		return a.loadAudio(cmd.Arg)
	case ipc.CmdLoadTranscript:
		return a.loadTranscript(cmd.Arg)

	case ipc.CmdExport:
		files, err := a.export(cmd.Arg)
		if len(files) > 0 {
			outLog.Printf("Exported transcript: %v", files)
		}
		return err

	case ipc.CmdQuit:
		a.requestQuit()
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd.Name)
}

// loadAudio accepts the file at path and hands it to the media host.
func (a *app) loadAudio(path string) error {
	au, err := upload.OpenAudio(path, "")
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedAudio) {
			// Let the controller record the rejection.
			return a.ctl.LoadAudio(upload.Audio{Name: filepath.Base(path), MIMEType: upload.DetectMIMEType(path)})
		}
		return err
	}
	if err := a.ctl.LoadAudio(au); err != nil {
		return err
	}
	outLog.Printf("Loaded audio %s (%s, %d bytes)", au.Name, au.MIMEType, au.Size)
	return nil
}

// loadTranscript reads path and imports it as the custom transcript. A
// rejected file keeps whatever transcript was active before.
func (a *app) loadTranscript(path string) error {
	res := <-upload.ReadAsync(path)
	if res.Err != nil {
		return res.Err
	}
	if err := a.ctl.ImportTranscript(res.Name, "", res.Data); err != nil {
		return err
	}
	outLog.Printf("Imported transcript %s (%d entries)", res.Name, a.ctl.Transcript().Len())
	return nil
}
