package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/pidfile"
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	playStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#06D6A0")).Bold(true)
	pauseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166")).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF476F"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
)

// renderStatus formats a snapshot for the terminal. daemon is the PID
// record of the running daemon; it is ignored when running is false.
func renderStatus(st *ipc.StatusSnapshot, daemon pidfile.Record, running bool, now time.Time) string {
	var b strings.Builder

	state := pauseStyle.Render("Paused")
	if st.IsPlaying {
		state = playStyle.Render("Playing")
	}
	fmt.Fprintf(&b, "%s  %s  vol %d  rate %gx\n", state, st.Position, st.Volume, st.PlaybackRate)

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-11s", label+":")), value)
	}
	audio := st.AudioName
	if audio == "" {
		audio = "(none)"
	}
	row("Audio", audio)

	source := st.Source
	if st.TranscriptName != "" {
		source += " " + st.TranscriptName
	}
	row("Transcript", fmt.Sprintf("%s (%d entries)", source, st.Entries))

	if st.ActiveIndex >= 0 {
		row("Active", timeStyle.Render("["+st.ActiveTime+"]")+" "+activeStyle.Render(st.ActiveText))
	} else {
		row("Active", "(none)")
	}

	host := "disconnected"
	if st.HostConnected {
		host = "connected"
		if st.HostVersion != "" {
			host += " (" + st.HostVersion + ")"
		}
	}
	row("Host", host)
	if st.LastAction != "" {
		row("Last", st.LastAction)
	}
	if st.LastError != "" {
		row("Error", errorStyle.Render(st.LastError))
	}
	row("Updated", st.Timestamp.Format("15:04:05"))
	if !running {
		b.WriteString(errorStyle.Render("daemon not running; status may be stale") + "\n")
		return b.String()
	}
	d := fmt.Sprintf("PID %d, up %s", daemon.PID, daemon.Uptime(now))
	if daemon.HostURL != "" {
		d += " " + helpStyle.Render("("+daemon.HostURL+")")
	}
	row("Daemon", d)
	return b.String()
}
