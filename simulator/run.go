package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/fleetops/core/logger"
)

// Publisher delivers a batch of events.
type Publisher interface {
	Publish(ctx context.Context, evs []Event) error
}

// HTTPPublisher posts batches to the bulk telemetry endpoint.
type HTTPPublisher struct {
	URL    string
	Client *http.Client
}

// NewHTTPPublisher targets the API at baseURL.
func NewHTTPPublisher(baseURL string) *HTTPPublisher {
	return &HTTPPublisher{
		URL:    strings.TrimRight(baseURL, "/") + "/api/telemetry/bulk",
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish posts evs as one bulk request.
func (p *HTTPPublisher) Publish(ctx context.Context, evs []Event) error {
	body, err := json.Marshal(map[string]any{"events": evs})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bulk telemetry: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}

// Stats summarises a simulation run.
type Stats struct {
	Events  int
	Batches int
	Failed  int
	Elapsed time.Duration
}

// Rate returns the achieved events per second.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Events) / s.Elapsed.Seconds()
}

// Run generates cfg.Rate events every tick until cfg.Duration has elapsed or
// ctx is done. Failed batches are logged and counted.
func Run(ctx context.Context, cfg Config, gen *Generator, pub Publisher, log logger.Logger, tick time.Duration) Stats {
	log = logger.OrNop(log)
	if tick <= 0 {
		tick = time.Second
	}
	start := time.Now()
	deadline := time.NewTimer(cfg.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var st Stats
	for {
		select {
		case <-ctx.Done():
			st.Elapsed = time.Since(start)
			return st
		case <-deadline.C:
			st.Elapsed = time.Since(start)
			return st
		case now := <-ticker.C:
			evs := gen.Tick(now, cfg.Rate)
			for i := 0; i < len(evs); i += cfg.BatchSize {
				end := min(i+cfg.BatchSize, len(evs))
				if err := pub.Publish(ctx, evs[i:end]); err != nil {
					st.Failed++
					log.Warnf("send batch: %v", err)
					continue
				}
				st.Events += end - i
				st.Batches++
			}
			log.Debugw("tick", map[string]any{"events": st.Events, "batches": st.Batches})
		}
	}
}
