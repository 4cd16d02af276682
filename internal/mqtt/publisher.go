package mqtt

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/scene"
)

// Sender publishes raw payloads. *Client implements it.
type Sender interface {
	Publish(topic string, payload []byte) error
}

// Publisher forwards the output of one load to MQTT. Every call is
// published as JSON to <prefix>/<load_id>/<kind>. It implements
// report.LoadReporter.
type Publisher struct {
	sender Sender
	prefix string
	loadID string

	mu       sync.Mutex
	failures int
}

// NewPublisher returns a Publisher for one load.
func NewPublisher(s Sender, prefix, loadID string) *Publisher {
	return &Publisher{
		sender: s,
		prefix: strings.TrimSuffix(prefix, "/"),
		loadID: loadID,
	}
}

// Topic returns the topic of the given kind for this load.
func (p *Publisher) Topic(kind string) string {
	return p.prefix + "/" + p.loadID + "/" + kind
}

// Failures returns the number of publishes that failed.
func (p *Publisher) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

type message struct {
	Node    string      `json:"node,omitempty"`
	Message string      `json:"msg,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

func (p *Publisher) publish(kind string, m message) {
	b, err := json.Marshal(m)
	if err == nil {
		err = p.sender.Publish(p.Topic(kind), b)
	}
	if err == nil {
		return
	}

	p.mu.Lock()
	p.failures++
	first := p.failures == 1
	p.mu.Unlock()
	if first {
		events.Emit("error", "system.error", "mqtt publish failed", map[string]interface{}{
			"load_id": p.loadID,
			"topic":   p.Topic(kind),
			"error":   err.Error(),
		})
	}
}

func (p *Publisher) ReportError(msg string) {
	p.publish("error", message{Message: msg})
}

func (p *Publisher) LogMessage(msg string) {
	p.publish("log", message{Message: msg})
}

func (p *Publisher) EmitTransform(name string, t scene.Transform) {
	p.publish("transform", message{Node: name, Value: t})
}

func (p *Publisher) EmitCamera(name string, c scene.CameraParams) {
	p.publish("camera", message{Node: name, Value: c})
}

func (p *Publisher) EmitLight(name string, l scene.LightParams) {
	p.publish("light", message{Node: name, Value: l})
}

func (p *Publisher) EmitMesh(name string, m scene.Mesh) {
	p.publish("mesh", message{Node: name, Value: m})
}
