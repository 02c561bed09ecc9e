// Package httphost carries channel messages over HTTP: inbound messages arrive
// as POSTs on a gin route, outbound messages are POSTed to the target origin.
// The sender origin is taken from the Origin header.
package httphost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/hostlink/internal/auth"
	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/observability"
	"github.com/danmuck/hostlink/internal/wire"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultPath      = "/messages"
	DefaultTimeout   = 5 * time.Second
	maxMessageBytes  = 1 << 20
	contentTypeText  = "text/plain; charset=utf-8"
	contentTypeJSON  = "application/json"
	shutdownDeadline = 5 * time.Second
)

var (
	ErrOriginRequired = errors.New("httphost: local origin required")
	ErrUnaddressable  = errors.New("httphost: target origin is not addressable")
	ErrRejected       = errors.New("httphost: message rejected by peer")
)

// Config configures one HTTP endpoint of the channel.
type Config struct {
	Name           string
	ListenAddr     string
	Path           string
	Origin         string
	AllowedOrigins []string
	Timeout        time.Duration
	// Token, when set, is sent on every post and required on every receive.
	Token          string
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "hostlink"
	}
	if strings.TrimSpace(c.Path) == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Host implements channel.Host over HTTP.
type Host struct {
	cfg      Config
	router   *gin.Engine
	client   *http.Client
	auth     auth.Validator
	appeared time.Time

	channel.ListenerSet
}

var _ channel.Host = (*Host)(nil)

func New(cfg Config) (*Host, error) {
	cfg = cfg.WithDefaults()
	cfg.Origin = strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if cfg.Origin == "" {
		return nil, ErrOriginRequired
	}
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.InitLogger(cfg.Name)))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.AllowedOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", auth.HeaderName},
		MaxAge:       12 * time.Hour,
	}))

	h := &Host{
		cfg:      cfg,
		router:   r,
		client:   &http.Client{Timeout: cfg.Timeout},
		auth:     auth.ForToken(cfg.Token),
		appeared: time.Now(),
	}
	h.registerRoutes()
	return h, nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}

func (h *Host) Origin() string {
	return h.cfg.Origin
}

// Handler exposes the router for tests and embedding.
func (h *Host) Handler() http.Handler {
	return h.router
}

func (h *Host) registerRoutes() {
	h.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(h.appeared).String(),
			"service":   h.cfg.Name,
			"listeners": h.Listeners(),
		})
	})
	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.router.POST(h.cfg.Path, h.requireToken, h.receive)
}

func (h *Host) requireToken(c *gin.Context) {
	if strings.TrimSpace(h.cfg.Token) == "" {
		c.Set(observability.KeyAuth, observability.AuthOpen)
		c.Next()
		return
	}
	if err := h.auth.Validate(c.GetHeader(auth.HeaderName)); err != nil {
		c.Set(observability.KeyAuth, observability.AuthDenied)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(observability.KeyAuth, observability.AuthOK)
	c.Next()
}

func (h *Host) receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > maxMessageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
		return
	}
	in := channel.Inbound{Origin: c.GetHeader("Origin")}
	if len(body) > 0 {
		if isJSON(c.ContentType()) {
			var msg wire.StructuredMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			in.Data = msg
			c.Set(observability.KeyMessageKind, "structured")
		} else {
			in.Data = string(body)
			c.Set(observability.KeyMessageKind, "text")
		}
	} else {
		c.Set(observability.KeyMessageKind, "empty")
	}
	c.Set(observability.KeyListeners, h.Listeners())
	h.Deliver(in)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == contentTypeJSON
}

// PostMessage delivers msg to targetOrigin's message route.
func (h *Host) PostMessage(msg wire.Message, targetOrigin string) error {
	if msg.Structured != nil {
		body, err := json.Marshal(msg.Structured)
		if err != nil {
			return err
		}
		return h.post(body, contentTypeJSON, targetOrigin)
	}
	if msg.Text == "" {
		return channel.ErrNothingToSend
	}
	return h.post([]byte(msg.Text), contentTypeText, targetOrigin)
}

// PostText delivers raw text, for replies and events.
func (h *Host) PostText(text, targetOrigin string) error {
	return h.PostMessage(wire.Message{Text: text}, targetOrigin)
}

func (h *Host) post(body []byte, contentType, targetOrigin string) error {
	target := strings.TrimRight(strings.TrimSpace(targetOrigin), "/")
	if target == "" || target == channel.AnyOrigin {
		return fmt.Errorf("%w: %q", ErrUnaddressable, targetOrigin)
	}
	req, err := http.NewRequest(http.MethodPost, target+h.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Origin", h.cfg.Origin)
	if token := strings.TrimSpace(h.cfg.Token); token != "" {
		req.Header.Set(auth.HeaderName, token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status=%d target=%s", ErrRejected, resp.StatusCode, target)
	}
	return nil
}

// Run listens on ListenAddr and serves until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	ln, err := h.Listen()
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Listen binds ListenAddr without serving, so callers can send before the
// first request arrives.
func (h *Host) Listen() (net.Listener, error) {
	return net.Listen("tcp", h.cfg.ListenAddr)
}

// Serve serves the router on ln until ctx is cancelled.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: h.cfg.Timeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
