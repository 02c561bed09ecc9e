// Package link runs one endpoint of a host/frame channel as a process:
// either answering commands (serve) or issuing one command and waiting for it.
// The endpoint speaks HTTP or framed TCP.
package link

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/hostlink/internal/bridge"
	"github.com/danmuck/hostlink/internal/httphost"
	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/responder"
	"github.com/danmuck/hostlink/internal/wire"
	"golang.org/x/sync/errgroup"
)

const (
	TransportHTTP = "http"
	TransportTCP  = "tcp"
)

var (
	ErrTargetOriginRequired = errors.New("link: target origin required")
	ErrOriginRequired       = errors.New("link: local origin required")
	ErrUnknownTransport     = errors.New("link: unknown transport")
)

// ServiceConfig configures one linkctl process.
type ServiceConfig struct {
	// Transport is TransportHTTP (default) or TransportTCP. Over TCP only
	// Host.Name, Host.ListenAddr and Host.Origin apply.
	Transport    string
	Host         httphost.Config
	TargetOrigin string
	AppSID       string
	SafelyTime   time.Duration
	Handler      responder.Handler
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Host: httphost.Config{
			Name:       "linkctl",
			ListenAddr: "127.0.0.1:7100",
			Origin:     "http://127.0.0.1:7100",
			Path:       httphost.DefaultPath,
			Timeout:    httphost.DefaultTimeout,
		},
		Transport:    TransportHTTP,
		TargetOrigin: "http://127.0.0.1:7200",
		SafelyTime:   wire.DefaultSafelyTime,
		Handler:      responder.DefaultRouter().Handle,
	}
}

// Service owns the endpoint and the collaborators built on it. host is nil
// over TCP, where each connection gets its own stream host.
type Service struct {
	cfg      ServiceConfig
	host     *httphost.Host
	provider identity.Static
}

func NewService(cfg ServiceConfig) (*Service, error) {
	target := strings.TrimRight(strings.TrimSpace(cfg.TargetOrigin), "/")
	if target == "" {
		return nil, ErrTargetOriginRequired
	}
	cfg.Host.Origin = strings.TrimRight(strings.TrimSpace(cfg.Host.Origin), "/")
	if cfg.Host.Origin == "" {
		return nil, ErrOriginRequired
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch cfg.Transport {
	case "":
		cfg.Transport = TransportHTTP
	case TransportHTTP, TransportTCP:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	if len(cfg.Host.AllowedOrigins) == 0 {
		cfg.Host.AllowedOrigins = []string{target}
	}
	if cfg.Handler == nil {
		cfg.Handler = responder.DefaultRouter().Handle
	}
	if strings.TrimSpace(cfg.AppSID) == "" {
		cfg.AppSID = identity.PairSessionID(cfg.Host.Origin, target)
	}
	provider, err := identity.NewStatic(target, cfg.AppSID)
	if err != nil {
		return nil, err
	}
	cfg.TargetOrigin = target
	svc := &Service{cfg: cfg, provider: provider}
	if cfg.Transport == TransportHTTP {
		host, err := httphost.New(cfg.Host)
		if err != nil {
			return nil, err
		}
		svc.host = host
	}
	return svc, nil
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Run serves until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve answers commands from the target origin until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if s.cfg.Transport == TransportTCP {
		return s.serveStream(ctx)
	}
	r := responder.New(s.host, s.cfg.TargetOrigin, s.cfg.AppSID, s.cfg.Handler, nil)
	r.Start()
	defer r.Stop()
	logging.Infof("link.Service serve addr=%q origin=%q trusted=%q", s.cfg.Host.ListenAddr, s.host.Origin(), s.cfg.TargetOrigin)
	return s.host.Run(ctx)
}

// Send issues one command to the target origin and waits for its reply while
// serving the endpoint the reply comes back to.
func (s *Service) Send(ctx context.Context, command string, opts wire.Options) (wire.Value, error) {
	if s.cfg.Transport == TransportTCP {
		return s.sendStream(ctx, command, opts)
	}
	ln, err := s.host.Listen()
	if err != nil {
		return wire.Value{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.host.Serve(gctx, ln)
	})

	var result wire.Value
	g.Go(func() error {
		defer cancel()
		b, err := bridge.New(s.host, s.provider, bridge.Config{SafelyTime: s.cfg.SafelyTime})
		if err != nil {
			return err
		}
		b.Open()
		defer b.Close()
		v, err := b.Call(gctx, command, opts)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return wire.Value{}, err
	}
	return result, nil
}
