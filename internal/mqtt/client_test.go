package mqtt

import (
	"errors"
	"testing"

	"github.com/AaronLay10/StoryEngine/internal/events"
)

func lastEvent(t *testing.T, name string) events.Event {
	t.Helper()
	snap := events.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		if snap[i].Name == name {
			return snap[i]
		}
	}
	t.Fatalf("no %s event journaled", name)
	return events.Event{}
}

func TestClientConnectionStateIsReported(t *testing.T) {
	events.Clear()
	var states []bool
	c := NewClient(Options{
		BrokerURL:     "tcp://localhost:1883",
		ClientID:      "test",
		OnStateChange: func(connected bool) { states = append(states, connected) },
	})

	c.handleConnect(nil)
	c.handleConnectionLost(nil, errors.New("EOF"))

	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("expected [true false], got %v", states)
	}

	up := lastEvent(t, "mqtt.connected")
	if up.Fields["broker"] != "tcp://localhost:1883" {
		t.Errorf("unexpected broker field %v", up.Fields["broker"])
	}
	down := lastEvent(t, "mqtt.disconnected")
	if down.Level != "warn" || down.Fields["error"] != "EOF" {
		t.Errorf("unexpected disconnect event %+v", down)
	}
}

func TestClientNotConnectedBeforeConnect(t *testing.T) {
	c := NewClient(Options{BrokerURL: "tcp://localhost:1883", ClientID: "test"})
	if c.IsConnected() {
		t.Error("new client must not report connected")
	}
}

func TestTimeoutErrors(t *testing.T) {
	var err error = &ConnectTimeoutError{Broker: "tcp://b:1883"}
	if err.Error() != "mqtt connect timeout: tcp://b:1883" {
		t.Errorf("got %q", err.Error())
	}
	err = &TimeoutError{Op: "publish", Topic: "storyengine/x/node"}
	if err.Error() != "mqtt publish timeout: storyengine/x/node" {
		t.Errorf("got %q", err.Error())
	}
}
