package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/config"
	"github.com/abrezinsky/galajudge/internal/handlers"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/repository"
	"github.com/abrezinsky/galajudge/internal/services"
	"github.com/abrezinsky/galajudge/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	handlers *handlers.Handlers
	repo     *repository.Repository
	admin    *services.AdminService
	hub      *websocket.Hub
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, sessions *auth.Auth) (*App, error) {
	repo, err := repository.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	judging := services.NewJudgingService(log, repo)
	admin := services.NewAdminService(log, repo)

	hub := websocket.New(log)
	hub.Start()
	judging.SetBroadcaster(hub)
	admin.SetBroadcaster(hub)

	h := handlers.New(judging, admin, sessions, hub, log)
	h.SetClientSettings(cfg.ClientSettings())

	a := &App{
		log:      log,
		cfg:      cfg,
		handlers: h,
		repo:     repo,
		admin:    admin,
		hub:      hub,
	}

	if cfg.Seed {
		if err := a.seed(context.Background()); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return a, nil
}

// seed loads demo data, leaving an already populated database alone
func (a *App) seed(ctx context.Context) error {
	result, err := a.admin.SeedDemo(ctx)
	if stderrors.Is(err, services.ErrAlreadySeeded) {
		a.log.Info("Database already has galas, skipping demo data")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	for _, j := range result.Judges {
		a.log.Info("Demo judge", "judge_id", j.ID, "name", j.Name, "access_code", j.AccessCode)
	}
	return nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close releases the database
func (a *App) Close() error {
	return a.repo.Close()
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Run on an existing listener
func (a *App) Serve(ctx context.Context, listener net.Listener) error {
	port := 0
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	baseURL := fmt.Sprintf("http://%s:%d", getPreferredIP(realNetworkProvider{}), port)
	a.setDefaultBaseURL(ctx, baseURL)

	server := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	a.log.Info("Server starting", "url", baseURL)

	select {
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setDefaultBaseURL sets the base URL used in judge login links if not
// already configured or if the current value uses localhost, which is
// useless in a QR code scanned from a phone
func (a *App) setDefaultBaseURL(ctx context.Context, baseURL string) {
	existing, err := a.admin.GetBaseURL(ctx)
	if err != nil {
		a.log.Warn("Failed to read base_url", "error", err)
		return
	}
	if existing != "" && !strings.Contains(existing, "localhost") {
		return
	}
	if err := a.admin.SetBaseURL(ctx, baseURL); err != nil {
		a.log.Warn("Failed to set default base_url", "error", err)
		return
	}
	a.log.Info("Default base URL set", "url", baseURL)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring
// private ranges. Falls back to localhost if none is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
