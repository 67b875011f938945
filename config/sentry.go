package config

import "time"

// SentryConfig enables error reporting to Sentry. An empty DSN disables it.
type SentryConfig struct {
	DSN              string        `json:"dsn"`
	Environment      string        `json:"environment"`
	Release          string        `json:"release"`
	ServerName       string        `json:"server_name"`
	TracesSampleRate float64       `json:"traces_sample_rate"`
	FlushTimeout     time.Duration `json:"flush_timeout"`
}

// FlushWait returns the timeout used when draining buffered reports.
func (c SentryConfig) FlushWait() time.Duration {
	if c.FlushTimeout <= 0 {
		return 2 * time.Second
	}
	return c.FlushTimeout
}
