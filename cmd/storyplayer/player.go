package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AaronLay10/StoryEngine/internal/story"
)

var errQuit = errors.New("quit")

// player renders node payloads to a terminal and turns typed commands into
// engine calls. It must only be used from the goroutine that drives the engine.
type player struct {
	engine *story.Engine
	out    io.Writer
}

func newPlayer(e *story.Engine, out io.Writer) *player {
	p := &player{engine: e, out: out}
	e.SubscribeData(p.render)
	return p
}

func (p *player) render(pl story.Payload) {
	fmt.Fprintf(p.out, "\n== %s ==\n", pl.Node)
	if text := payloadText(pl.Data); text != "" {
		fmt.Fprintln(p.out, text)
	}

	for i, c := range pl.Choices {
		label := c.Text
		if label == "" {
			label = fmt.Sprintf("choice %d", i+1)
		}
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, label)
	}

	switch {
	case len(pl.Choices) > 0:
	case pl.Redirect != "":
		fmt.Fprintf(p.out, "  [Enter] continue to %s\n", pl.Redirect)
	default:
		fmt.Fprintln(p.out, "  (the end: r to restart, q to quit)")
	}
}

// payloadText returns the "text" entry of map data, the data itself when it is
// a string, or its JSON form otherwise.
func payloadText(data any) string {
	switch d := data.(type) {
	case nil:
		return ""
	case string:
		return d
	case map[string]interface{}:
		if t, ok := d["text"].(string); ok {
			return t
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprint(data)
	}
	return string(b)
}

// handle runs one terminal command. It returns errQuit when the player asks to stop.
func (p *player) handle(line string) error {
	cmd := strings.TrimSpace(line)
	switch cmd {
	case "q", "quit":
		return errQuit

	case "r", "restart":
		p.engine.Reset()
		return p.engine.Start()

	case "v", "vars":
		p.printVariables()
		return nil

	case "":
		if len(p.engine.CurrentChoices()) == 0 && p.engine.CurrentRedirect() != "" {
			return p.engine.FollowRedirect()
		}
		return nil
	}

	n, err := strconv.Atoi(cmd)
	if err != nil {
		return fmt.Errorf("unknown command %q (number, r, v or q)", cmd)
	}
	return p.choose(n - 1)
}

// choose picks a choice by its zero-based index, as sent over MQTT.
func (p *player) choose(index int) error {
	return p.engine.Choose(index)
}

func (p *player) printVariables() {
	vars := p.engine.Variables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := vars[name]
		if v.Kind() == story.KindString {
			fmt.Fprintf(p.out, "  %s = %q\n", name, v.String())
			continue
		}
		fmt.Fprintf(p.out, "  %s = %s\n", name, v.String())
	}
}

// storyIDFromPath names a story after its file: stories/lighthouse.yaml is "lighthouse".
func storyIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
