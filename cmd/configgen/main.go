package main

import (
	"flag"
	"log"

	"github.com/danmuck/hostlink/internal/config"
)

func main() {
	kind := flag.String("kind", "host", "config kind: host|frame")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if _, err := config.Template(*kind); err != nil {
		log.Fatal(err)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		cfg, err := config.LoadLinkConfig(path)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config %q at %s", *kind, cfg.Name, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	return "cmd/linkctl/" + kind + ".config.toml"
}
