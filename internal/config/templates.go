package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "frame":
		return frameTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "host"
transport = "http"
listen_addr = "127.0.0.1:7100"
origin = "http://127.0.0.1:7100"
target_origin = "http://127.0.0.1:7200"
app_sid = "sid.local"
path = "/messages"
allowed_origins = ["http://127.0.0.1:7200"]
safely_time_ms = 900
timeout_ms = 5000
log_level = "error"
# token = "shared-secret"
`

const frameTemplate = `name = "frame"
transport = "http"
listen_addr = "127.0.0.1:7200"
origin = "http://127.0.0.1:7200"
target_origin = "http://127.0.0.1:7100"
app_sid = "sid.local"
path = "/messages"
allowed_origins = ["http://127.0.0.1:7100"]
safely_time_ms = 900
timeout_ms = 5000
log_level = "info"
# token = "shared-secret"
`
