// Command relay federates snapshots published by multiple observer hosts
// into one combined view.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/crystalball/observer/internal/config"
	"github.com/crystalball/observer/internal/relay"
)

func main() {
	port := flag.Int("port", 0, "override the configured HTTP port")
	token := flag.String("token", "", "require this bearer token on every request")
	expiryMs := flag.Int("expiry", 0, "override the configured publisher expiry, in milliseconds")
	flag.Parse()

	cfg, err := config.LoadRelayConfig(config.DefaultRelayConfigPath())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "token":
			cfg.Token = *token
		case "expiry":
			cfg.Expiry = time.Duration(*expiryMs) * time.Millisecond
		}
	})

	store := relay.NewSnapshotStore(cfg.Expiry)
	srv := relay.NewServer(store, cfg.Token)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	p := cfg.Port
	if p <= 0 {
		p = 3001
	}
	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(p),
		Handler: mux,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down")
		os.Exit(0)
	}()

	log.Printf("relay listening on %s (expiry=%s, auth=%v)", httpServer.Addr, cfg.Expiry, cfg.Token != "")
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
