// Package keybind resolves the key-binding table: input codes map to
// named actions, and each action produces zero or more command strings
// on press and on release. Input codes with no binding are ignored.
package keybind

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type actionDoc struct {
	Press   []string `yaml:"press"`
	Release []string `yaml:"release"`
}

type fileDoc struct {
	Bindings map[string]string    `yaml:"bindings"`
	Actions  map[string]actionDoc `yaml:"actions"`
}

// Table is the resolved binding table, keyed by input code.
type Table struct {
	press   map[string][]string
	release map[string][]string
}

// Parse decodes a YAML binding document and resolves every input code
// to its press/release command lists. A binding naming an unknown
// action is a construction error; a code absent from the table simply
// produces no commands at runtime.
func Parse(data []byte) (*Table, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode key bindings: %w", err)
	}

	table := &Table{
		press:   make(map[string][]string, len(doc.Bindings)),
		release: make(map[string][]string, len(doc.Bindings)),
	}
	for code, actionName := range doc.Bindings {
		action, ok := doc.Actions[actionName]
		if !ok {
			return nil, fmt.Errorf("key %q bound to unknown action %q", code, actionName)
		}
		if len(action.Press) > 0 {
			table.press[code] = append([]string(nil), action.Press...)
		}
		if len(action.Release) > 0 {
			table.release[code] = append([]string(nil), action.Release...)
		}
	}
	return table, nil
}

// Press returns the commands produced when code is pressed; nil when
// the code is unbound.
func (t *Table) Press(code string) []string { return t.press[code] }

// Release returns the commands produced when code is released.
func (t *Table) Release(code string) []string { return t.release[code] }

// CommandSender delivers one command string to the live channel.
type CommandSender interface {
	SendCommand(command string) error
}

// Dispatcher turns raw key events into commands, firing only on edge
// transitions: key-repeat notifications while a key is held produce
// nothing.
type Dispatcher struct {
	table  *Table
	sender CommandSender
	held   map[string]bool
}

func NewDispatcher(table *Table, sender CommandSender) *Dispatcher {
	return &Dispatcher{table: table, sender: sender, held: make(map[string]bool)}
}

// KeyDown handles a press notification for code.
func (d *Dispatcher) KeyDown(code string) error {
	if d.held[code] {
		return nil
	}
	d.held[code] = true
	return d.send(d.table.Press(code))
}

// KeyUp handles a release notification for code.
func (d *Dispatcher) KeyUp(code string) error {
	if !d.held[code] {
		return nil
	}
	delete(d.held, code)
	return d.send(d.table.Release(code))
}

func (d *Dispatcher) send(commands []string) error {
	for _, command := range commands {
		if err := d.sender.SendCommand(command); err != nil {
			return err
		}
	}
	return nil
}
