// Command observer watches AI-coding-assistant processes on this host and
// serves a continuously refreshed snapshot of their state over HTTP.
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

	"github.com/crystalball/observer/internal/classifier"
	"github.com/crystalball/observer/internal/config"
	"github.com/crystalball/observer/internal/discovery"
	"github.com/crystalball/observer/internal/localserver"
	"github.com/crystalball/observer/internal/publisher"
	"github.com/crystalball/observer/internal/session"
	"github.com/crystalball/observer/internal/sidecar"
)

func main() {
	port := flag.Int("port", 0, "override the configured HTTP port")
	pollMs := flag.Int("poll-interval", 0, "override the configured poll interval, in milliseconds")
	simulate := flag.Bool("simulate", false, "use the simulator backend instead of a real one")
	flag.Parse()

	cfg, err := config.LoadObserverConfig(config.DefaultObserverConfigPath())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "poll-interval":
			cfg.PollInterval = time.Duration(*pollMs) * time.Millisecond
		case "simulate":
			cfg.Simulate = *simulate
		}
	})

	backend := discovery.Select(discovery.Config{Simulate: cfg.Simulate})
	clf := classifier.New()
	reader := sidecar.New("")
	store := session.NewStore(clf, reader)

	var pub *publisher.Publisher
	if cfg.RelayURL != "" {
		pub = publisher.New(cfg.RelayURL, cfg.User, cfg.Color, cfg.RelayToken)
	}

	srv := localserver.New(store)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	port2 := cfg.Port
	if port2 <= 0 {
		port2 = 3000
	}
	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port2),
		Handler: mux,
	}

	go runPollLoop(backend, store, pub, cfg.PollInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down")
		os.Exit(0)
	}()

	log.Printf("observer listening on %s (simulate=%v, poll=%s)", httpServer.Addr, cfg.Simulate, cfg.PollInterval)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// runPollLoop drives one discover-classify-publish tick every interval,
// forever. A failing discovery or sidecar read yields a partial or empty
// rawSessions list for that tick only (spec §5) — the loop never stops.
func runPollLoop(backend discovery.Backend, store *session.Store, pub *publisher.Publisher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		raw, err := backend.DiscoverSessions()
		if err != nil {
			log.Printf("[observer] discovery error: %v", err)
		}

		rawSessions := make([]session.RawSession, 0, len(raw))
		for _, p := range raw {
			rawSessions = append(rawSessions, session.RawSession{
				PID:         p.PID,
				CPUPercent:  p.CPUPercent,
				RSSBytes:    p.RSSBytes,
				TTY:         p.TTY,
				StartTime:   p.StartTime,
				Cwd:         p.Cwd,
				HasChildren: p.HasChildren,
				Sidecar:     p.Sidecar,
			})
		}

		snap := store.Update(rawSessions)

		if pub != nil {
			sharing := config.LoadSharing("")
			pub.Publish(snap, sharing)
		}
	}
}
