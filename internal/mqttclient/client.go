// FilePath: internal/mqttclient/client.go
package mqttclient

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	nuts "github.com/vaudience/go-nuts"
)

// Client manages the broker connection. Subscribing and publishing live in
// Subscriber and Publisher.
type Client struct {
	client mqtt.Client
	cfg    config.MQTTConfig
}

func NewClient(cfg config.MQTTConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		nuts.L.Infof("[MQTT] Connected to broker %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		nuts.L.Warnf("[MQTT] Connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	return &Client{client: client, cfg: cfg}, nil
}

// Native returns the underlying paho client for Subscriber and Publisher.
func (c *Client) Native() mqtt.Client {
	return c.client
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) Close() {
	c.client.Disconnect(250)
	nuts.L.Infof("[MQTT] Disconnected")
}
