// Package mqtt wraps the paho client with the publish/subscribe surface the
// controller needs. Reconnect and retry are delegated to paho; publishes are
// fire-and-forget so a broker outage never stalls the control tick.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/homehub/heating-controller/internal/config"
)

// MessageHandler receives the raw payload for a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Publisher is the outbound surface used by the orchestrator. Satisfied by
// *Client; tests substitute a recorder.
type Publisher interface {
	PublishString(topic, payload string, retain bool)
	PublishJSON(topic string, v interface{}, retain bool)
}

type Client struct {
	cfg       config.MQTTConfig
	client    paho.Client
	subs      map[string]MessageHandler
	onConnect func()
}

func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:  cfg,
		subs: make(map[string]MessageHandler),
	}
}

// Handle registers a handler for a topic filter. Must be called before
// Connect; subscriptions are re-established on every reconnect.
func (c *Client) Handle(filter string, h MessageHandler) {
	c.subs[filter] = h
}

// OnConnect registers a callback fired after (re)connection and subscription,
// used to request initial device states.
func (c *Client) OnConnect(f func()) {
	c.onConnect = f
}

func (c *Client) Connect() error {
	opts := paho.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.OnConnect = func(cl paho.Client) {
		log.Info().Str("broker", c.cfg.BrokerURL).Msg("MQTT connected")
		for filter, handler := range c.subs {
			h := handler
			token := cl.Subscribe(filter, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
				h(msg.Topic(), msg.Payload())
			})
			go logTokenError(token, "subscribe "+filter)
		}
		if c.onConnect != nil {
			c.onConnect()
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

// PublishString publishes a plain payload at the configured QoS.
func (c *Client) PublishString(topic, payload string, retain bool) {
	token := c.client.Publish(topic, c.cfg.QoS, retain, payload)
	go logTokenError(token, "publish "+topic)
}

// PublishJSON marshals v and publishes it at the configured QoS.
func (c *Client) PublishJSON(topic string, v interface{}, retain bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal payload")
		return
	}
	token := c.client.Publish(topic, c.cfg.QoS, retain, b)
	go logTokenError(token, "publish "+topic)
}

func logTokenError(token paho.Token, op string) {
	token.Wait()
	if err := token.Error(); err != nil {
		log.Debug().Err(err).Str("op", op).Msg("MQTT operation failed")
	}
}
