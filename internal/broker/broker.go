// Package broker maintains the MQTT connection and subscription that
// feed the history store.
package broker

import (
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lukepighetti/mqttui/internal/config"
	"github.com/lukepighetti/mqttui/internal/logging"
)

const connectTimeout = 10 * time.Second

// MessageHandler receives every message arriving on the subscription.
// It is called from the MQTT client's router goroutine, concurrently
// with the render loop.
type MessageHandler func(topic string, payload []byte, retained bool)

// StateHandler is notified when the connection is established or lost.
type StateHandler func(connected bool)

// Client wraps the paho client with mqttui's subscription lifecycle.
type Client struct {
	client mqtt.Client
	topic  string
}

// Connect dials the broker and subscribes to the configured topic
// filter. The client reconnects automatically after a lost connection
// and re-establishes the subscription on each connect.
func Connect(cfg config.Config, onMessage MessageHandler, onState StateHandler) (*Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID()
	}

	receive := func(_ mqtt.Client, m mqtt.Message) {
		// Paho reuses payload buffers; copy before handing off.
		payload := append([]byte(nil), m.Payload()...)
		onMessage(m.Topic(), payload, m.Retained())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(cfg.Topic, 0, receive); token.Wait() && token.Error() != nil {
			logging.Logger.Error().Err(token.Error()).Str("topic", cfg.Topic).Msg("subscribe failed")
			return
		}
		logging.Logger.Info().Str("broker", cfg.BrokerURL()).Str("topic", cfg.Topic).Msg("subscribed")
		if onState != nil {
			onState(true)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Logger.Warn().Err(err).Msg("connection lost")
		if onState != nil {
			onState(false)
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", cfg.BrokerURL(), connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.BrokerURL(), err)
	}

	return &Client{client: client, topic: cfg.Topic}, nil
}

// Topic returns the subscribed topic filter.
func (c *Client) Topic() string {
	return c.topic
}

// Disconnect closes the connection, waiting briefly for in-flight work.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// defaultClientID builds a client ID unique enough for concurrent
// viewers against the same broker.
func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("mqttui-%s-%d", host, os.Getpid())
}
