package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/arrayops/acrctl/internal/arraysim"
	"github.com/arrayops/acrctl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to arraysim config (TOML)")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	observability.InitLogger("arraysim", zerolog.InfoLevel)

	cfg := arraysim.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadSimConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "arraysim: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	srv := arraysim.New(cfg)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "arraysim: %v\n", err)
		os.Exit(1)
	}
}
