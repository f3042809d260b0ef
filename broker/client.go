// Package broker owns the MQTT connection lifecycle (connect, subscribe,
// publish, reconnect) and the Home Assistant discovery advertisement. It
// is a collaborator of the core (see spec.md §1): it only ever calls
// canlight.Proxy capability methods and reads canlight.Proxy.Available();
// it never touches the fieldbus directly.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/tparsec/canlight/config"
)

// ConnectError indicates the initial dial to the broker failed.
type ConnectError struct {
	Cause error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("broker: connect: %v", e.Cause) }
func (e *ConnectError) Unwrap() error { return e.Cause }

// Client wraps a paho MQTT client with the connect/publish/subscribe
// surface the entrypoint needs, funneling every inbound message callback
// through a single dispatch channel so handlers run serialized on one
// goroutine — mirroring the core's single-execution-context constraint
// (see spec.md §5) for the commands handlers issue back into proxies.
type Client struct {
	cfg      config.BrokerConfig
	mqtt     mqtt.Client
	lg       *logrus.Logger
	dispatch chan func()
	done     chan struct{}
}

// New constructs a Client for cfg. It does not dial until Connect is
// called.
func New(cfg config.BrokerConfig, lg *logrus.Logger) *Client {
	if lg == nil {
		lg = logrus.New()
	}
	c := &Client{
		cfg:      cfg,
		lg:       lg,
		dispatch: make(chan func(), 64),
		done:     make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.lg.Infof("broker: connected to %s:%d", cfg.Host, cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.lg.Warnf("broker: connection lost: %v", err)
	})

	c.mqtt = mqtt.NewClient(opts)
	go c.runDispatch()
	return c
}

func (c *Client) runDispatch() {
	for {
		select {
		case fn := <-c.dispatch:
			fn()
		case <-c.done:
			return
		}
	}
}

// Connect dials the broker and blocks until the connection succeeds or
// fails.
func (c *Client) Connect() error {
	token := c.mqtt.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return &ConnectError{Cause: err}
	}
	return nil
}

// Close disconnects from the broker and stops the dispatch goroutine.
func (c *Client) Close() {
	close(c.done)
	c.mqtt.Disconnect(250)
}

// AvailabilityTopic is the single availability topic shared by every
// device advertised under nodeID, matching the original source's
// "<node_id>/availability" convention.
func (c *Client) AvailabilityTopic() string {
	return fmt.Sprintf("%s/availability", c.cfg.NodeID)
}

// PublishAvailability publishes the node-wide availability retained
// message.
func (c *Client) PublishAvailability(online bool) error {
	payload := "offline"
	if online {
		payload = "online"
	}
	return c.publish(c.AvailabilityTopic(), true, payload)
}

// discoveryPayload is the Home Assistant MQTT discovery document for a
// light entity: https://www.home-assistant.io/integrations/light.mqtt/
type discoveryPayload struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	CommandTopic      string `json:"command_topic"`
	AvailabilityTopic string `json:"availability_topic"`
	Schema            string `json:"schema"`
	RGB               bool   `json:"rgb"`
	ColorTemp         bool   `json:"color_temp"`
	White             bool   `json:"white_value"`
	Brightness        bool   `json:"brightness"`
}

// CommandTopic is the topic the entrypoint subscribes a device's command
// handler to.
func (c *Client) CommandTopic(dev config.DeviceConfig) string {
	return fmt.Sprintf("%s/light/%s/set", c.cfg.NodeID, dev.Unique)
}

// PublishDiscovery publishes the retained Home Assistant discovery
// payload for dev.
func (c *Client) PublishDiscovery(dev config.DeviceConfig) error {
	topic := fmt.Sprintf("%s/light/%s_%s/config", c.cfg.HassPrefix, c.cfg.NodeID, dev.Unique)
	payload := discoveryPayload{
		Name:              dev.Name,
		UniqueID:          dev.Unique,
		CommandTopic:      c.CommandTopic(dev),
		AvailabilityTopic: c.AvailabilityTopic(),
		Schema:            "json",
		RGB:               true,
		ColorTemp:         true,
		White:             true,
		Brightness:        true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.publish(topic, true, string(data))
}

// Subscribe registers handler on topic; handler runs on the client's
// single dispatch goroutine, never concurrently with other handlers or
// with publishes issued from within a handler.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.mqtt.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		select {
		case c.dispatch <- func() { handler(payload) }:
		case <-c.done:
		}
	})
	token.Wait()
	return token.Error()
}

func (c *Client) publish(topic string, retained bool, payload string) error {
	token := c.mqtt.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("broker: publish to %s timed out", topic)
	}
	return token.Error()
}
