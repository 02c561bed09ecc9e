package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/hostlink/internal/config"
	"github.com/danmuck/hostlink/internal/link"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/rs/zerolog"
)

// linkctl config.toml key mapping to link runtime settings.
type fileConfig struct {
	Name           string   `toml:"name"`
	Transport      string   `toml:"transport"`
	ListenAddr     string   `toml:"listen_addr"`
	Origin         string   `toml:"origin"`
	TargetOrigin   string   `toml:"target_origin"`
	AppSID         string   `toml:"app_sid"`
	Path           string   `toml:"path"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SafelyTimeMS   int      `toml:"safely_time_ms"`
	TimeoutMS      int      `toml:"timeout_ms"`
	LogLevel       string   `toml:"log_level"`
	Token          string   `toml:"token"`
}

type runtimeConfig struct {
	Service     link.ServiceConfig
	LogLevel    zerolog.Level
	HasLogLevel bool
}

// linkctl loader for TOML config with default overlay. YAML files go through
// the shared config package.
func loadServiceConfig(path string) (runtimeConfig, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadSharedConfig(path)
	}

	out := runtimeConfig{Service: link.DefaultServiceConfig()}
	cfg := &out.Service

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load linkctl config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Host.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("transport") {
		cfg.Transport = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("listen_addr") {
		cfg.Host.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("origin") {
		cfg.Host.Origin = strings.TrimSpace(raw.Origin)
	}
	if meta.IsDefined("target_origin") {
		cfg.TargetOrigin = strings.TrimSpace(raw.TargetOrigin)
	}
	if meta.IsDefined("app_sid") {
		cfg.AppSID = strings.TrimSpace(raw.AppSID)
	}
	if meta.IsDefined("path") {
		cfg.Host.Path = strings.TrimSpace(raw.Path)
	}
	if meta.IsDefined("allowed_origins") {
		cfg.Host.AllowedOrigins = append([]string(nil), raw.AllowedOrigins...)
	}
	if meta.IsDefined("safely_time_ms") {
		if raw.SafelyTimeMS < 0 {
			return runtimeConfig{}, fmt.Errorf("load linkctl config: safely_time_ms must not be negative")
		}
		cfg.SafelyTime = time.Duration(raw.SafelyTimeMS) * time.Millisecond
	}
	if meta.IsDefined("timeout_ms") {
		if raw.TimeoutMS < 0 {
			return runtimeConfig{}, fmt.Errorf("load linkctl config: timeout_ms must not be negative")
		}
		cfg.Host.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("token") {
		cfg.Host.Token = strings.TrimSpace(raw.Token)
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return runtimeConfig{}, fmt.Errorf("load linkctl config: unknown log_level %q", raw.LogLevel)
		}
		out.LogLevel, out.HasLogLevel = lvl, true
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runtimeConfig{}, fmt.Errorf("load linkctl config: unknown keys %v", undecoded)
	}
	return out, nil
}

func loadSharedConfig(path string) (runtimeConfig, error) {
	shared, err := config.LoadLinkConfig(path)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load linkctl config: %w", err)
	}
	out := runtimeConfig{Service: link.DefaultServiceConfig()}
	out.Service.Host = shared.HostConfig()
	out.Service.Transport = shared.Transport
	out.Service.TargetOrigin = shared.TargetOrigin
	out.Service.AppSID = shared.AppSID
	out.Service.SafelyTime = shared.SafelyTime()
	if lvl, ok := logging.ParseLevel(shared.LogLevel); ok {
		out.LogLevel, out.HasLogLevel = lvl, true
	}
	return out, nil
}
