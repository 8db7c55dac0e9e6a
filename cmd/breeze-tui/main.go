// Command breeze-tui runs the work/break timer as a terminal dashboard.
// Activity comes from the system idle source only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"breeze/internal/app"
	"breeze/internal/config"
	"breeze/internal/notify"
	"breeze/internal/services"
	"breeze/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to breeze.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// the dashboard owns the terminal, so logs go to a file
	logOut, err := openLogFile(cfg.App.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logOut.Close()
	cfg.Logging.Console = false

	// session callbacks can run inside Update (a key press starts the timer),
	// so messages are sent from their own goroutine
	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			go p.Send(msg)
		}
	}

	opts := app.StackOptions{
		LogOutput: logOut,
		Component: "tui",
		Alerters:  []notify.Alerter{tui.NewAlerter(send)},
	}
	if cfg.Session.Chime {
		opts.Chimers = append(opts.Chimers, notify.NewBellChimer(os.Stdout))
	}

	stack, err := app.BuildStack(context.Background(), cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(tui.NewModel(stack.Session), tea.WithAltScreen())
	program.Store(p)
	unsubscribe := stack.Session.OnChange(func(c services.Change) {
		send(tui.ChangeMsg(c))
	})

	_, runErr := p.Run()

	unsubscribe()
	program.Store(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stack.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", runErr)
		os.Exit(1)
	}
}

func openLogFile(appName string) (*os.File, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
