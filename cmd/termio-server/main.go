// termio-server hosts one flat TermIO session: it accepts WebSocket
// peers, fans their frames and chat out to everyone, and optionally
// archives chat to NATS JetStream for the history API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/termio/termio/internal/config"
	"github.com/termio/termio/internal/hub"
	"github.com/termio/termio/internal/logger"
)

func main() {
	configPath := flag.String("config", "termio_config.json", "path to the server config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Printf("error loading config: %v, using defaults\n", err)
	}
	logger.Init(cfg.Log)
	serverLogger := logger.New("server")
	serverLogger.WithFields(map[string]interface{}{
		"addr":        cfg.Addr,
		"level":       cfg.Log.Level,
		"log_to_file": cfg.Log.LogToFile,
	}).Info("starting termio-server")

	archive := connectArchive(cfg.NATSURL, serverLogger)
	h := hub.New(archive, logger.New("hub"))

	http.HandleFunc("/ws", h.ServeWs)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		natsStatus := "disabled"
		if archive != nil {
			natsStatus = "connected"
		}
		health := map[string]interface{}{
			"status":      "ok",
			"uptime":      h.Uptime().String(),
			"connections": h.Count(),
			"nats":        natsStatus,
			"timestamp":   time.Now(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	http.HandleFunc("/api/chat/history", func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			http.Error(w, "chat archival not available", http.StatusServiceUnavailable)
			return
		}
		history, err := archive.History()
		if err != nil {
			serverLogger.Errorf("chat history fetch: %v", err)
			http.Error(w, "error retrieving chat history", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": history,
			"count":    len(history),
		})
	})

	serverLogger.Infof("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		serverLogger.Fatalf("listen on %s: %v", cfg.Addr, err)
	}
}

// connectArchive wires the optional JetStream chat archive. The server
// runs fully without it; any failure here is a warning, not an error.
func connectArchive(natsURL string, log *logger.Logger) *hub.ChatArchive {
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	log.Infof("connecting to NATS at %s", natsURL)
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Warnf("NATS unavailable (%v); chat archival disabled", err)
		return nil
	}

	archive, err := hub.NewChatArchive(nc, logger.New("archive"))
	if err != nil {
		log.Warnf("JetStream unavailable (%v); chat archival disabled", err)
		nc.Close()
		return nil
	}
	log.Info("chat archival enabled")
	return archive
}
