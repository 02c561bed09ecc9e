package link

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/danmuck/hostlink/internal/bridge"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/responder"
	"github.com/danmuck/hostlink/internal/streamhost"
	"github.com/danmuck/hostlink/internal/wire"
	"golang.org/x/sync/errgroup"
)

// dialAddr is the host:port part of a target origin such as tcp://10.0.0.2:7200.
func dialAddr(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("link: target origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("link: target origin %q has no host", origin)
	}
	return u.Host, nil
}

func (s *Service) serveStream(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Host.ListenAddr)
	if err != nil {
		return err
	}
	logging.Infof("link.Service serve tcp addr=%q origin=%q trusted=%q", ln.Addr(), s.cfg.Host.Origin, s.cfg.TargetOrigin)
	return s.serveStreamOn(ctx, ln)
}

// serveStreamOn answers every accepted connection until ctx is cancelled.
func (s *Service) serveStreamOn(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			g.Go(func() error {
				s.answerStream(gctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

func (s *Service) answerStream(ctx context.Context, conn net.Conn) {
	host, err := streamhost.New(conn, s.cfg.Host.Origin, nil)
	if err != nil {
		_ = conn.Close()
		logging.Errorf("link.Service stream remote=%s err=%v", conn.RemoteAddr(), err)
		return
	}
	r := responder.New(host, s.cfg.TargetOrigin, s.cfg.AppSID, s.cfg.Handler, nil)
	r.Start()
	defer r.Stop()
	logging.Logf("link.Service stream open remote=%s", conn.RemoteAddr())

	select {
	case <-ctx.Done():
	case <-host.Done():
	}
	_ = host.Close()
	logging.Logf("link.Service stream closed remote=%s err=%v", conn.RemoteAddr(), host.Err())
}

func (s *Service) sendStream(ctx context.Context, command string, opts wire.Options) (wire.Value, error) {
	addr, err := dialAddr(s.cfg.TargetOrigin)
	if err != nil {
		return wire.Value{}, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return wire.Value{}, err
	}
	host, err := streamhost.New(conn, s.cfg.Host.Origin, nil)
	if err != nil {
		_ = conn.Close()
		return wire.Value{}, err
	}
	defer host.Close()

	b, err := bridge.New(host, s.provider, bridge.Config{SafelyTime: s.cfg.SafelyTime})
	if err != nil {
		return wire.Value{}, err
	}
	b.Open()
	defer b.Close()
	return b.Call(ctx, command, opts)
}
