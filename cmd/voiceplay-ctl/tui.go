package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/player"
)

const refreshEvery = 250 * time.Millisecond

// skipKey binds one of player.SkipDeltas.
type skipKey struct {
	key.Binding
	delta float64
}

type keyMap struct {
	Toggle  key.Binding
	Skips   []skipKey
	Up      key.Binding
	Down    key.Binding
	Jump    key.Binding
	Follow  key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Rate    key.Binding
	Clear   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// skipKeys holds the keys and help label for each of player.SkipDeltas,
// in the same order. The arrows move by ten seconds like the main skip
// buttons of a player.
var skipKeys = map[float64][]string{
	-30: {"[", "["},
	-10: {"←/h", "left", "h"},
	-5:  {",", ","},
	5:   {".", "."},
	10:  {"→/l", "right", "l"},
	30:  {"]", "]"},
}

func newSkipKeys() []skipKey {
	skips := make([]skipKey, 0, len(player.SkipDeltas))
	for _, d := range player.SkipDeltas {
		k, ok := skipKeys[d]
		if !ok {
			continue
		}
		skips = append(skips, skipKey{
			Binding: key.NewBinding(key.WithKeys(k[1:]...), key.WithHelp(k[0], fmt.Sprintf("%+gs", d))),
			delta:   d,
		})
	}
	return skips
}

var keys = keyMap{
	Toggle:  key.NewBinding(key.WithKeys(" ", "space", "p"), key.WithHelp("space", "play/pause")),
	Skips:   newSkipKeys(),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select")),
	Jump:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump to line")),
	Follow:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
	VolUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
	VolDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
	Rate:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7"), key.WithHelp("1-7", "rate preset")),
	Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "sample transcript")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// skip returns the binding for delta, or a disabled one.
func (k keyMap) skip(delta float64) key.Binding {
	for _, s := range k.Skips {
		if s.delta == delta {
			return s.Binding
		}
	}
	return key.NewBinding(key.WithDisabled())
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.skip(-10), k.skip(10), k.Jump, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	transport := []key.Binding{k.Toggle}
	for _, s := range k.Skips {
		transport = append(transport, s.Binding)
	}
	return [][]key.Binding{
		transport,
		{k.Up, k.Down, k.Jump, k.Follow},
		{k.VolUp, k.VolDown, k.Rate, k.Clear, k.Help, k.Quit},
	}
}

type tickMsg struct{}

type statusMsg struct {
	st  *ipc.StatusSnapshot
	err error
}

// tuiModel mirrors the daemon status and turns keys into commands.
type tuiModel struct {
	read func() (*ipc.StatusSnapshot, error)
	send func(ipc.Command) error

	status *ipc.StatusSnapshot
	err    error
	cursor int
	follow bool
	height int
	help   help.Model
}

func newTUIModel(read func() (*ipc.StatusSnapshot, error), send func(ipc.Command) error) tuiModel {
	return tuiModel{read: read, send: send, follow: true, height: 24, help: help.New()}
}

func runTUI() error {
	m := newTUIModel(ipc.ReadStatus, ipc.WriteCommand)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m tuiModel) refresh() tea.Msg {
	st, err := m.read()
	return statusMsg{st: st, err: err}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.refresh, tick())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.refresh, tick())

	case statusMsg:
		m.err = msg.err
		if msg.st != nil {
			m.status = msg.st
			if m.follow && msg.st.ActiveIndex >= 0 {
				m.cursor = msg.st.ActiveIndex
			}
			m.clampCursor()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for _, sk := range keys.Skips {
		if key.Matches(msg, sk.Binding) {
			m.command(ipc.CmdSkip, strconv.FormatFloat(sk.delta, 'f', -1, 64))
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Toggle):
		m.command(ipc.CmdToggle, "")
	case key.Matches(msg, keys.Up):
		m.follow = false
		m.cursor--
		m.clampCursor()
	case key.Matches(msg, keys.Down):
		m.follow = false
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, keys.Jump):
		m.follow = true
		m.command(ipc.CmdJump, strconv.Itoa(m.cursor))
	case key.Matches(msg, keys.Follow):
		m.follow = true
	case key.Matches(msg, keys.VolUp), key.Matches(msg, keys.VolDown):
		if m.status != nil {
			v := m.status.Volume + 5
			if key.Matches(msg, keys.VolDown) {
				v = m.status.Volume - 5
			}
			m.command(ipc.CmdVolume, strconv.Itoa(v))
		}
	case key.Matches(msg, keys.Rate):
		i, _ := strconv.Atoi(msg.String())
		if i >= 1 && i <= len(player.RatePresets) {
			m.command(ipc.CmdRate, strconv.FormatFloat(player.RatePresets[i-1], 'f', -1, 64))
		}
	case key.Matches(msg, keys.Clear):
		m.command(ipc.CmdClearTranscript, "")
	}
	return m, nil
}

func (m *tuiModel) command(name ipc.Name, arg string) {
	m.err = m.send(ipc.Command{Name: name, Arg: arg})
}

func (m *tuiModel) clampCursor() {
	n := 0
	if m.status != nil {
		n = len(m.status.Lines)
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m tuiModel) View() string {
	if m.status == nil {
		if m.err != nil {
			return errorStyle.Render("waiting for voiceplay: "+m.err.Error()) + "\n"
		}
		return "waiting for voiceplay...\n"
	}
	st := m.status
	var b strings.Builder

	state := pauseStyle.Render("⏸ Paused")
	if st.IsPlaying {
		state = playStyle.Render("▶ Playing")
	}
	audio := st.AudioName
	if audio == "" {
		audio = "no audio"
	}
	fmt.Fprintf(&b, "%s  %s  %s  vol %d  rate %gx\n\n", state, st.Position, labelStyle.Render(audio), st.Volume, st.PlaybackRate)

	// Keep the cursor in view; header and help take the remaining rows.
	rows := m.height - 6
	if rows < 3 {
		rows = 3
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(st.Lines) {
		end = len(st.Lines)
	}
	for i := start; i < end; i++ {
		l := st.Lines[i]
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		text := l.Text
		if i == st.ActiveIndex {
			text = activeStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, timeStyle.Render(fmt.Sprintf("%6s", l.Time)), text)
	}

	if st.LastError != "" {
		b.WriteString("\n" + errorStyle.Render(st.LastError) + "\n")
	} else if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(keys) + "\n")
	return b.String()
}
