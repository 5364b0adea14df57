package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// story
	"story.started": {},
	"story.reset":   {},
	"story.error":   {},

	// node
	"node.entered": {},

	// choice
	"choice.made": {},

	// redirect
	"redirect.followed": {},

	// variable
	"variable.set": {},

	// transport
	"mqtt.connected":    {},
	"mqtt.disconnected": {},
	"mqtt.choice":       {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
