package simulator

import (
	"context"
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

func newMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// MQTTPublisher publishes every event on the vehicle's telemetry topic, the
// way an on-board unit would.
type MQTTPublisher struct {
	client paho.Client
	topic  string
}

// NewMQTTPublisher connects to broker. topic is a template where %s is the
// vehicle id.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	cli, err := newMQTTClient(broker, clientID)
	if err != nil {
		return nil, err
	}
	return &MQTTPublisher{client: cli, topic: topic}, nil
}

// Publish sends the events one message each.
func (p *MQTTPublisher) Publish(ctx context.Context, evs []Event) error {
	for _, ev := range evs {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf(p.topic, ev.VehicleID)
		if token := p.client.Publish(topic, 1, false, b); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() { p.client.Disconnect(250) }
