package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/StoryEngine/internal/events"
)

// Client wraps the Paho MQTT client for the story player.
// Subscriptions are remembered and restored after an automatic reconnect.
type Client struct {
	client  paho.Client
	broker  string
	mu      sync.Mutex
	timeout time.Duration

	subsMu        sync.Mutex
	subs          map[string]paho.MessageHandler
	onStateChange func(connected bool)
}

// Options configures a Client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// OnStateChange, if set, is called from paho goroutines whenever the
	// connection comes up or is lost.
	OnStateChange func(connected bool)
}

// NewClient creates a new MQTT client but does not connect.
func NewClient(o Options) *Client {
	c := &Client{
		broker:        o.BrokerURL,
		timeout:       10 * time.Second,
		subs:          make(map[string]paho.MessageHandler),
		onStateChange: o.OnStateChange,
	}

	opts := paho.NewClientOptions().
		AddBroker(o.BrokerURL).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(c.handleConnectionLost)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	c.client = paho.NewClient(opts)
	return c
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(c.timeout) {
		return &ConnectTimeoutError{Broker: c.broker}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(c.timeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	if err := token.Error(); err != nil {
		return err
	}

	c.subsMu.Lock()
	c.subs[topic] = handler
	c.subsMu.Unlock()
	return nil
}

// Publish sends payload to topic with QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(c.timeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// handleConnect restores subscriptions. With a clean session the broker
// forgets them whenever the connection drops.
func (c *Client) handleConnect(pc paho.Client) {
	c.subsMu.Lock()
	subs := make(map[string]paho.MessageHandler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.subsMu.Unlock()

	for topic, h := range subs {
		token := pc.Subscribe(topic, 1, h)
		if !token.WaitTimeout(c.timeout) || token.Error() != nil {
			events.Emit("error", "system.error", "mqtt resubscribe failed", map[string]interface{}{
				"component": "mqtt",
				"topic":     topic,
			})
		}
	}

	events.Emit("info", "mqtt.connected", "", map[string]interface{}{
		"broker":        c.broker,
		"subscriptions": len(subs),
	})
	if c.onStateChange != nil {
		c.onStateChange(true)
	}
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	fields := map[string]interface{}{"broker": c.broker}
	if err != nil {
		fields["error"] = err.Error()
	}
	events.Emit("warn", "mqtt.disconnected", "", fields)
	if c.onStateChange != nil {
		c.onStateChange(false)
	}
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct {
	Broker string
}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout: " + e.Broker
}

// TimeoutError indicates a subscribe or publish timed out.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}
