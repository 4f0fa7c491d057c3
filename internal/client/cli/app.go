package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/boostauth/internal/client/client"
	"github.com/dmitrijs2005/boostauth/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	session client.SessionAPI
	probe   client.ProbeAPI
	reader  *bufio.Reader
	out     io.Writer

	mu    sync.Mutex
	token string
	email string
	mode  Mode
}

func NewApp(c *config.Config) (*App, error) {
	probe, err := client.NewGRPCClient(c.GRPCAddr)
	if err != nil {
		return nil, err
	}
	session := client.NewHTTPClient(c.ServerURL, &http.Client{Timeout: c.RequestTimeout})

	return newApp(c, session, probe, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, session client.SessionAPI, probe client.ProbeAPI, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		session: session,
		probe:   probe,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != ""
}

func (a *App) currentSession() (token, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token, a.email
}

func (a *App) setSession(token, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token, a.email = token, email
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var parts []string
	if a.email != "" {
		parts = append(parts, a.email)
	}
	if a.mode != "" {
		parts = append(parts, string(a.mode))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Run starts the health watcher and the REPL on the App's input. It returns
// when the user exits or the input ends.
func (a *App) Run(ctx context.Context) {
	defer a.probe.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("Welcome to boostauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// StartOnlineStatusWatcher polls server health every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	st, err := a.probe.Health(ctx)
	if err != nil || st != "SERVING" {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
