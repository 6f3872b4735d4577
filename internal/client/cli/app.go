package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/client/client"
	"github.com/okhaimie-dev/PallyApp/internal/client/config"
	"github.com/okhaimie-dev/PallyApp/internal/client/services"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config         *config.Config
	sessionService services.SessionService
	walletService  services.WalletService
	session        *services.Session
	reader         *bufio.Reader
	out            io.Writer

	mu   sync.Mutex
	Mode Mode
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.LocalDB)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient, err := client.NewWalletClient(c.ServerEndpointAddr, client.Options{
		RequestTimeout: c.RequestTimeout,
		DeployTimeout:  c.DeployTimeout,
		AdminToken:     c.AdminToken,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ss := services.NewSessionService(apiClient, db)
	ws := services.NewWalletService(apiClient)

	return &App{
		config:         c,
		sessionService: ss,
		walletService:  ws,
		reader:         bufio.NewReader(os.Stdin),
		out:            os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) email() string {
	if a.session == nil {
		return ""
	}
	return a.session.Email
}

func (a *App) getStatus() string {
	a.mu.Lock()
	mode := a.Mode
	a.mu.Unlock()

	s := ""
	if a.session != nil {
		s = a.session.Email + " "
	}
	if mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run restores a cached session, starts the connectivity watcher and blocks
// in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.sessionService.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to Pally CLI (type 'help' for commands)")

	a.restoreSession(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) restoreSession(ctx context.Context) {
	sess, err := a.sessionService.Restore(ctx)
	if err != nil {
		return
	}
	a.session = sess
	fmt.Fprintf(a.out, "Signed in as %s until %s\n", sess.Email, sess.ExpiresAt.Local().Format(time.Kitchen))
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

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

	if err := a.sessionService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
