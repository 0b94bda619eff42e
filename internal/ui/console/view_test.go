package console

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/scatter/internal/worker"
)

// === Unit Tests: statusFor ===

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name         string
		row          workerRow
		expectedText string
	}{
		{"running", workerRow{live: true, state: worker.StateRunning}, statusRunning},
		{"paused", workerRow{live: true, state: worker.StatePaused}, statusPaused},
		{"drained", workerRow{exitReason: worker.ExitDrained}, statusDrained},
		{"ended", workerRow{exitReason: worker.ExitEnded}, statusEnded},
		{"setup failed", workerRow{exitReason: worker.ExitSetupFailed}, statusFailed},
		{"job failed", workerRow{exitReason: worker.ExitJobFailed}, statusFailed},
		{"terminated", workerRow{exitReason: worker.ExitTerminated}, statusStopped},
		{"unknown exit", workerRow{}, statusStopped},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, _ := statusFor(tc.row)
			require.Equal(t, tc.expectedText, text)
		})
	}
}

func TestStatusFor_FailureIsRed(t *testing.T) {
	_, color := statusFor(workerRow{exitReason: worker.ExitJobFailed})
	require.Equal(t, colorFailed, color)

	_, color = statusFor(workerRow{live: true, state: worker.StateRunning})
	require.Equal(t, colorRunning, color)
}

// === Unit Tests: Header and Footer ===

func TestRenderHeader_ShowsRunAndStats(t *testing.T) {
	p := newTestPool(t, 2, false)
	m := createTestModel(t, p)

	header := m.renderHeader()

	require.Contains(t, header, "scatter")
	require.Contains(t, header, "run "+shortRunID(p.RunID()))
	require.Contains(t, header, "workers live")
}

func TestRenderActionHints_ListsKeys(t *testing.T) {
	p := newTestPool(t, 2, false)
	m := createTestModel(t, p)

	hints := m.renderActionHints()

	require.Contains(t, hints, "j/k")
	require.Contains(t, hints, "pause/resume")
	require.Contains(t, hints, "help")
	require.Contains(t, hints, "quit")
}

func TestRenderView_FillsTerminal(t *testing.T) {
	p := newTestPool(t, 2, false)
	m := loadRoster(t, createTestModel(t, p))

	view := m.renderView()

	require.Equal(t, 30, lipgloss.Height(view))
	require.Equal(t, 100, lipgloss.Width(view))
}

// === Unit Tests: shortRunID ===

func TestShortRunID(t *testing.T) {
	require.Equal(t, "1a2b3c4d", shortRunID("1a2b3c4d-0000-1111-2222-333344445555"))
	require.Equal(t, "short", shortRunID("short"))
	require.Equal(t, "", shortRunID(""))
}
