package config

import (
	"time"

	"github.com/danmuck/hostlink/internal/httphost"
)

func (c LinkConfig) HostConfig() httphost.Config {
	return httphost.Config{
		Name:           c.Name,
		ListenAddr:     c.ListenAddr,
		Path:           c.Path,
		Origin:         c.Origin,
		AllowedOrigins: append([]string(nil), c.AllowedOrigins...),
		Timeout:        time.Duration(c.TimeoutMS) * time.Millisecond,
		Token:          c.Token,
	}
}

func (c LinkConfig) SafelyTime() time.Duration {
	return time.Duration(c.SafelyTimeMS) * time.Millisecond
}
