// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

type (
	// spinModel displays a spinner next to a static label until the wrapped
	// operation signals completion.
	spinModel struct {
		label   string
		spinner spinner.Model
		done    <-chan struct{}
	}

	// spinDoneMsg is sent when the wrapped operation completes.
	spinDoneMsg struct{}
)

// Spin runs op while rendering progress to out. On an interactive terminal
// it shows an animated spinner next to label; otherwise it prints the label
// once as plain text. Spin is a transparent wrapper: it always returns op's
// own error, unchanged, regardless of how rendering went.
func Spin(out io.Writer, label string, op func() error) error {
	if !IsInteractive(out) {
		fmt.Fprintf(out, "%s...\n", label)
		return op()
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- op()
		close(done)
	}()

	model := spinModel{
		label:   label,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		done:    done,
	}

	// Input is detached so the spinner cannot consume keystrokes meant for
	// the acknowledgement prompt that follows the run.
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	if _, err := program.Run(); err != nil {
		// Rendering failed; degrade to the plain label so the step is still
		// visible in the transcript.
		fmt.Fprintf(out, "%s...\n", label)
	}

	opErr := <-errCh
	if opErr != nil {
		fmt.Fprintf(out, "%s... failed\n", label)
	} else {
		fmt.Fprintf(out, "%s... done\n", label)
	}
	return opErr
}

// Init implements tea.Model.
func (m spinModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForDone(m.done))
}

// Update implements tea.Model.
func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case spinDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m spinModel) View() string {
	return m.spinner.View() + " " + m.label
}

// waitForDone converts the completion channel into a tea message.
func waitForDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return spinDoneMsg{}
	}
}
