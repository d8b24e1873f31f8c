package tui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/testutil"
)

// newE2EApp creates an App for end-to-end testing via teatest.
// Unlike newTestApp, this does NOT pre-configure width/height/ready
// since teatest sends WindowSizeMsg via WithInitialTermSize.
func newE2EApp(t *testing.T) *App {
	t.Helper()

	db := testutil.NewTestDB(t)
	seedTestModel(t, db)

	cfg := testConfig()
	return New(db.DB, cfg, capacity.NewService(db.DB, cfg))
}

// waitFor is a convenience wrapper around teatest.WaitFor with a standard timeout.
func waitFor(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte(text))
	}, teatest.WithDuration(5*time.Second))
}

func sendRunes(tm *teatest.TestModel, s string) {
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// --- End-to-end tests ---
// These launch the real Bubble Tea program in a headless virtual terminal,
// send actual keystrokes, and assert on the rendered screen output.

func TestE2E_DashboardOnStartup(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "CAPACITY OVERVIEW")
	waitFor(t, tm, "2 RESOURCES")
}

func TestE2E_NavigateToResources(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "CAPACITY OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "RESOURCES")
	waitFor(t, tm, "oven")
}

func TestE2E_ResourceTimeline(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "filler")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitFor(t, tm, "TIMELINE")

	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})
	waitFor(t, tm, "Enter:Timeline")
}

func TestE2E_PlanFlow(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "oven")

	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	sendRunes(tm, "p")
	waitFor(t, tm, "CAPACITY PLAN")
	waitFor(t, tm, "2 buckets")

	// b → week buckets
	sendRunes(tm, "b")
	waitFor(t, tm, "Bucket: week")
}

func TestE2E_HelpScreenAndBack(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "CAPACITY OVERVIEW")

	// F1 → Help
	tm.Send(tea.KeyMsg{Type: tea.KeyF1})
	waitFor(t, tm, "HELP")

	// Esc → Back to dashboard
	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})
	waitFor(t, tm, "CAPACITY OVERVIEW")
}

func TestE2E_DeleteFlow(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "oven")

	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	sendRunes(tm, "d")
	waitFor(t, tm, "CONFIRM DELETE")

	sendRunes(tm, "y")
	waitFor(t, tm, "Deleted 1 operation plans of oven")
}

func TestE2E_QuitFlow(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))

	waitFor(t, tm, "CAPACITY OVERVIEW")

	// Press q → confirm dialog
	sendRunes(tm, "q")
	waitFor(t, tm, "CONFIRM EXIT")

	// Press y → quit
	sendRunes(tm, "y")

	// Program should terminate; verify final model state
	m := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	app, ok := m.(*App)
	if !ok {
		t.Fatal("expected *App final model")
	}
	if !app.quitting {
		t.Error("expected app to be quitting")
	}
}

func TestE2E_QuitCancel(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "CAPACITY OVERVIEW")

	sendRunes(tm, "q")
	waitFor(t, tm, "CONFIRM EXIT")

	sendRunes(tm, "n")

	// Verify app is still responsive by navigating to another module
	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitFor(t, tm, "CAPACITY PLAN")
}

func TestE2E_NarrowTerminal(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(50, 24))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "CAPACITY OVERVIEW")
	waitFor(t, tm, "F3 Res")
}

func TestE2E_StatusBarShowsKeyBindings(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "[F4]Plan")
}
