package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/StoryEngine/internal/events"
	"github.com/AaronLay10/StoryEngine/internal/story"
)

// Publisher is the subset of Client the bridge publishes through.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber is the subset of Client the bridge receives choices through.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// NodeMessage is the wire form of a story.Payload.
type NodeMessage struct {
	Node     string          `json:"node"`
	Data     any             `json:"data,omitempty"`
	Choices  []ChoiceMessage `json:"choices"`
	DeadEnd  bool            `json:"dead_end,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

// ChoiceMessage describes one offered choice. Index is what a remote player sends back.
type ChoiceMessage struct {
	Index int    `json:"index"`
	Text  string `json:"text,omitempty"`
}

// NewNodeMessage converts a payload for publishing.
func NewNodeMessage(p story.Payload) NodeMessage {
	msg := NodeMessage{
		Node:     p.Node,
		Data:     p.Data,
		Choices:  make([]ChoiceMessage, 0, len(p.Choices)),
		Redirect: p.Redirect,
	}
	for i, c := range p.Choices {
		msg.Choices = append(msg.Choices, ChoiceMessage{Index: i, Text: c.Text})
	}
	msg.DeadEnd = p.Choices != nil && len(p.Choices) == 0 && p.Redirect == ""
	return msg
}

// Bridge mirrors a playthrough onto MQTT topics under a common prefix:
//
//	<prefix>/node    node payloads (published)
//	<prefix>/events  journal events (published)
//	<prefix>/choose  choice indices from remote players (subscribed)
type Bridge struct {
	pub     Publisher
	prefix  string
	choices chan int
}

// NewBridge creates a bridge publishing through pub.
func NewBridge(pub Publisher, prefix string) *Bridge {
	return &Bridge{
		pub:     pub,
		prefix:  strings.TrimSuffix(prefix, "/"),
		choices: make(chan int, 16),
	}
}

func (b *Bridge) NodeTopic() string   { return b.prefix + "/node" }
func (b *Bridge) EventsTopic() string { return b.prefix + "/events" }
func (b *Bridge) ChooseTopic() string { return b.prefix + "/choose" }

// PublishPayload is a story.DataListener that publishes each node payload.
func (b *Bridge) PublishPayload(p story.Payload) {
	data, err := json.Marshal(NewNodeMessage(p))
	if err != nil {
		b.reportError("marshal node payload", err)
		return
	}
	if err := b.pub.Publish(b.NodeTopic(), data); err != nil {
		b.reportError("publish node payload", err)
	}
}

// ForwardEvents publishes journal events until sub is closed.
// Run it in its own goroutine.
func (b *Bridge) ForwardEvents(sub events.Subscriber) {
	for e := range sub {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		// Errors are not reported back into the journal to avoid a feedback loop.
		_ = b.pub.Publish(b.EventsTopic(), data)
	}
}

// Listen subscribes to the choose topic. Received indices are delivered on Choices.
func (b *Bridge) Listen(s Subscriber) error {
	return s.Subscribe(b.ChooseTopic(), b.chooseHandler())
}

// Choices returns the channel of remote choice indices.
// Paho handlers run on their own goroutines, so the engine must only be
// driven from the goroutine that reads this channel.
func (b *Bridge) Choices() <-chan int {
	return b.choices
}

func (b *Bridge) chooseHandler() paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		idx, err := ParseChoice(msg.Payload())
		if err != nil {
			b.reportError("parse choice", err)
			return
		}

		select {
		case b.choices <- idx:
			events.Emit("info", "mqtt.choice", "", map[string]interface{}{
				"topic":        msg.Topic(),
				"choice_index": idx,
			})
		default:
			b.reportError("queue choice", fmt.Errorf("choice queue full, dropped %d", idx))
		}
	}
}

// ParseChoice accepts either a bare integer or {"index": n}.
func ParseChoice(payload []byte) (int, error) {
	raw := strings.TrimSpace(string(payload))
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}

	var msg struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return 0, fmt.Errorf("invalid choice payload %q: %w", raw, err)
	}
	if msg.Index == nil {
		return 0, fmt.Errorf("invalid choice payload %q: missing index", raw)
	}
	return *msg.Index, nil
}

func (b *Bridge) reportError(op string, err error) {
	events.Emit("error", "system.error", op+" failed", map[string]interface{}{
		"component": "mqtt",
		"error":     err.Error(),
	})
}
