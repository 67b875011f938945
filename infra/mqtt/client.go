package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/events"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/infra/logger"
)

const (
	// DefaultTelemetryTopic is where vehicles push samples. The wildcard
	// segment is the vehicle id.
	DefaultTelemetryTopic = "fleet/vehicle/+/telemetry"
	// DefaultEventPrefix prefixes outgoing notification topics.
	DefaultEventPrefix = "fleet/events"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker         string          `json:"broker"`
	ClientID       string          `json:"client_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	TelemetryTopic string          `json:"telemetry_topic"`
	EventPrefix    string          `json:"event_prefix"`
	UseTLS         bool            `json:"use_tls"`
	ClientCert     string          `json:"client_cert"`
	ClientKey      string          `json:"client_key"`
	CABundle       string          `json:"ca_bundle"`
	AuthMethod     string          `json:"auth_method"`
	QoS            map[string]byte `json:"qos"`
	LWTTopic       string          `json:"lwt_topic"`
	LWTPayload     string          `json:"lwt_payload"`
	LWTQoS         byte            `json:"lwt_qos"`
	LWTRetain      bool            `json:"lwt_retain"`
	MaxRetries     int             `json:"max_retries"`
	BackoffMS      int             `json:"backoff_ms"`
	TLSConfig      *tls.Config     `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TelemetryTopic == "" {
		c.TelemetryTopic = DefaultTelemetryTopic
	}
	if c.EventPrefix == "" {
		c.EventPrefix = DefaultEventPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "fleetops-" + uuid.NewString()
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes fleet events and feeds pushed telemetry to an
// Ingester.
type PahoClient struct {
	cli    pahoClient
	cfg    Config
	logger logger.Logger
	ingest *Ingester

	backoff time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Option customises a PahoClient.
type Option func(*PahoClient)

// WithIngester subscribes to the telemetry topic and hands every message
// to in. The subscription is renewed on reconnect.
func WithIngester(in *Ingester) Option { return func(p *PahoClient) { p.ingest = in } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(p *PahoClient) { p.logger = l } }

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config, opts ...Option) (*PahoClient, error) {
	cfg.SetDefaults()
	copts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	pc := &PahoClient{
		cfg:     cfg,
		logger:  logger.New("mqtt_client"),
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	for _, o := range opts {
		o(pc)
	}

	copts.OnConnect = func(c paho.Client) {
		pc.logger.Infof("MQTT connected")
		pc.subscribe(c)
	}
	copts.OnConnectionLost = func(_ paho.Client, err error) {
		pc.logger.Errorf("connection lost: %v", err)
	}
	copts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		pc.logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(copts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

func (p *PahoClient) subscribe(c pahoClient) {
	if p.ingest == nil {
		return
	}
	qos := p.qos("telemetry")
	if token := c.Subscribe(p.cfg.TelemetryTopic, qos, p.onTelemetry); token.Wait() && token.Error() != nil {
		p.logger.Errorf("subscribe error: %v", token.Error())
	}
}

func (p *PahoClient) onTelemetry(_ paho.Client, msg paho.Message) {
	if err := p.ingest.Handle(msg.Topic(), msg.Payload()); err != nil {
		p.logger.Warnf("telemetry on %s rejected: %v", msg.Topic(), err)
	}
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qos(kind string) byte {
	if q, ok := p.cfg.QoS[kind]; ok {
		return q
	}
	return 0
}

// EventTopic returns the topic an event is published on:
// <prefix>/<event name>[/<vehicle id>].
func (p *PahoClient) EventTopic(e events.Event) string {
	topic := strings.TrimSuffix(p.cfg.EventPrefix, "/") + "/" + e.Name()
	if k := e.Key(); k != "" {
		topic += "/" + k
	}
	return topic
}

// Notify publishes e as a JSON envelope. It implements notify.Notifier.
func (p *PahoClient) Notify(ctx context.Context, e events.Event) error {
	payload, err := notify.Encode(e, time.Now())
	if err != nil {
		return err
	}
	topic := p.EventTopic(e)
	if err := p.Publish(ctx, topic, p.qos("events"), payload); err != nil {
		coremon.CaptureException(err, map[string]string{"vehicle_id": e.Key(), "module": "mqtt", "event": e.Name()})
		return err
	}
	return nil
}

// Publish sends payload with exponential backoff between attempts.
func (p *PahoClient) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
