package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SceneBridge/internal/events"
)

// LoadRequest asks the bridge to load a file. LoadID is optional.
type LoadRequest struct {
	Path   string `json:"path"`
	LoadID string `json:"load_id,omitempty"`
}

// LoadFunc runs one requested load.
type LoadFunc func(req LoadRequest)

// ParseLoadRequest decodes a request payload: a JSON object, a JSON
// string holding the path, or anything else taken as a bare path.
func ParseLoadRequest(payload []byte) (LoadRequest, error) {
	var req LoadRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		var path string
		if json.Unmarshal(payload, &path) != nil {
			path = string(payload)
		}
		req = LoadRequest{Path: strings.TrimSpace(path)}
	}
	if req.Path == "" {
		return LoadRequest{}, errors.New("load request has no path")
	}
	return req, nil
}

// subscriberClient is the part of *Client used by RequestSubscriber.
type subscriberClient interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// RequestSubscriber listens for load requests on <prefix>/requests/load.
// Subscribing is idempotent so it can be repeated after a reconnect.
type RequestSubscriber struct {
	mu         sync.Mutex
	client     subscriberClient
	topic      string
	load       LoadFunc
	subscribed bool
}

// NewRequestSubscriber creates a subscriber that passes requests to load.
func NewRequestSubscriber(client subscriberClient, prefix string, load LoadFunc) *RequestSubscriber {
	return &RequestSubscriber{
		client: client,
		topic:  RequestTopic(prefix),
		load:   load,
	}
}

// RequestTopic returns the load request topic under prefix.
func RequestTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/requests/load"
}

// Topic returns the request topic.
func (s *RequestSubscriber) Topic() string { return s.topic }

// Subscribe subscribes to the request topic if not already subscribed.
func (s *RequestSubscriber) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return nil
	}
	if err := s.client.Subscribe(s.topic, s.handle); err != nil {
		return err
	}
	s.subscribed = true
	return nil
}

// Reset forgets the subscription. Call it on disconnect so the next
// Subscribe renews it.
func (s *RequestSubscriber) Reset() {
	s.mu.Lock()
	s.subscribed = false
	s.mu.Unlock()
}

// IsSubscribed reports whether the request topic is subscribed.
func (s *RequestSubscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

func (s *RequestSubscriber) handle(_ paho.Client, msg paho.Message) {
	req, err := ParseLoadRequest(msg.Payload())
	if err != nil {
		events.Emit("error", "system.error", "invalid load request", map[string]interface{}{
			"topic": msg.Topic(),
			"error": err.Error(),
		})
		return
	}
	s.load(req)
}
