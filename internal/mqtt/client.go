package mqtt

import (
	"log"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	opTimeout      = 10 * time.Second
	retryInterval  = 5 * time.Second
	keepAlive      = 30 * time.Second
	disconnectWait = 1000 // ms
)

// BrokerURL returns MQTT_URL, or the local default broker.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// Options configure a Client. Empty credentials are not sent.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// OnConnect runs after every successful connect, including automatic
	// reconnects. Subscriptions do not survive a reconnect.
	OnConnect func()
	// OnConnectionLost runs when an established connection drops.
	OnConnectionLost func(err error)
}

// Client is a reconnecting broker connection.
type Client struct {
	mu     sync.Mutex
	broker string
	paho   paho.Client
}

// NewClient creates a client; nothing is dialled until Connect.
func NewClient(o Options) *Client {
	if o.Broker == "" {
		o.Broker = BrokerURL()
	}
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval)
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Printf("mqtt: connected to %s", o.Broker)
		if o.OnConnect != nil {
			o.OnConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection to %s lost: %v", o.Broker, err)
		if o.OnConnectionLost != nil {
			o.OnConnectionLost(err)
		}
	})
	return &Client{broker: o.Broker, paho: paho.NewClient(opts)}
}

// Broker returns the broker URL the client dials.
func (c *Client) Broker() string { return c.broker }

// wait blocks for token up to opTimeout.
func wait(token paho.Token, op, topic string) error {
	if !token.WaitTimeout(opTimeout) {
		return &TimeoutError{Op: op, Topic: topic}
	}
	return token.Error()
}

// Connect makes the first connection attempt. On timeout the client keeps
// retrying in the background and OnConnect fires once it succeeds.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.paho.Connect(), "connect", "")
}

// Publish sends payload to topic at QoS 1 and waits for the ack.
func (c *Client) Publish(topic string, payload []byte) error {
	return wait(c.paho.Publish(topic, 1, false, payload), "publish", topic)
}

// Subscribe subscribes handler to topic at QoS 1.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.paho.Subscribe(topic, 1, handler), "subscribe", topic)
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paho.Disconnect(disconnectWait)
}

func (c *Client) IsConnected() bool {
	return c.paho.IsConnected()
}

// TimeoutError is returned when the broker does not answer an operation
// in time.
type TimeoutError struct {
	Op    string // connect, publish or subscribe
	Topic string
}

func (e *TimeoutError) Error() string {
	if e.Topic == "" {
		return "mqtt " + e.Op + " timeout"
	}
	return "mqtt " + e.Op + " timeout: " + e.Topic
}
