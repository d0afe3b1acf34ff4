// Package monitor provides a simulated monitoring collaborator. It plays a
// YAML scenario of lifecycle and condition changes, answers refresh
// requests with readings and acknowledges close requests after a delay.
package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ipmitree/internal/bridge"
	"ipmitree/internal/domain"
	appErrors "ipmitree/internal/errors"
	"ipmitree/internal/tree"

	"gopkg.in/yaml.v3"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Resources []Resource `yaml:"resources"`
	Steps     []Step     `yaml:"steps"`
	Close     CloseRules `yaml:"close"`
}

// Resource is one resource present when the scenario starts.
type Resource struct {
	ID     string `yaml:"id"`
	Parent string `yaml:"parent,omitempty"`
	Kind   string `yaml:"kind"`
	Name   string `yaml:"name,omitempty"`
	Active bool   `yaml:"active,omitempty"`
	// Value is the first reading returned to a refresh. Only resources with
	// a value are refreshable.
	Value string `yaml:"value,omitempty"`
}

// Step is one timed change. After is measured from the previous step.
type Step struct {
	After  time.Duration `yaml:"after"`
	Action string        `yaml:"action"`
	ID     string        `yaml:"id"`
	Parent string        `yaml:"parent,omitempty"`
	Kind   string        `yaml:"kind,omitempty"`
	Name   string        `yaml:"name,omitempty"`
	Level  string        `yaml:"level,omitempty"`
	Value  string        `yaml:"value,omitempty"`
}

// CloseRules shapes how close requests are answered.
type CloseRules struct {
	Delay time.Duration `yaml:"delay"`
	// Fail lists resources whose close request is refused outright.
	Fail []string `yaml:"fail,omitempty"`
	// Hang lists resources that never report closing.
	Hang []string `yaml:"hang,omitempty"`
}

const (
	ActionAdd        = "add"
	ActionRemove     = "remove"
	ActionMove       = "move"
	ActionEnter      = "enter"
	ActionClear      = "clear"
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionValue      = "value"
)

// Parse decodes and validates a scenario.
func Parse(r io.Reader) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, scenarioError("parse scenario", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and parses the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	//nolint:gosec // G304: scenario path comes from the user's own config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scenarioError(fmt.Sprintf("read scenario %s", path), err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks every resource and step is well formed.
func (sc *Scenario) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(sc.Resources))
	for i, res := range sc.Resources {
		if strings.TrimSpace(res.ID) == "" {
			errs = append(errs, fmt.Errorf("resource %d: id is required", i))
			continue
		}
		if _, dup := seen[res.ID]; dup {
			errs = append(errs, fmt.Errorf("resource %s: duplicate id", res.ID))
		}
		seen[res.ID] = struct{}{}
		if res.Parent != "" {
			if _, ok := seen[res.Parent]; !ok {
				errs = append(errs, fmt.Errorf("resource %s: parent %s must be listed first", res.ID, res.Parent))
			}
		}
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i, err))
		}
	}
	if sc.Close.Delay < 0 {
		errs = append(errs, errors.New("close delay must not be negative"))
	}
	if len(errs) > 0 {
		return scenarioError("invalid scenario", errors.Join(errs...))
	}
	return nil
}

func (st Step) validate() error {
	if st.After < 0 {
		return errors.New("after must not be negative")
	}
	if strings.TrimSpace(st.ID) == "" {
		return errors.New("id is required")
	}
	switch st.Action {
	case ActionAdd, ActionRemove, ActionMove, ActionActivate, ActionDeactivate, ActionValue:
		return nil
	case ActionEnter, ActionClear:
		_, err := domain.ParseLevel(st.Level)
		return err
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

// InitialEvents returns the add events for the starting resources. payload
// supplies each resource's payload.
func (sc *Scenario) InitialEvents(payload func(Resource) any) []bridge.Event {
	events := make([]bridge.Event, 0, len(sc.Resources))
	for _, res := range sc.Resources {
		ev := bridge.ResourceAdded{
			Parent: tree.ID(res.Parent),
			ID:     tree.ID(res.ID),
			Name:   res.Name,
			Kind:   domain.ParseKind(res.Kind),
			Active: res.Active,
		}
		if payload != nil {
			ev.Payload = payload(res)
		}
		events = append(events, ev)
	}
	return events
}

// event converts a step into the bridge event it produces. Value steps
// produce none.
func (st Step) event(payload any) (bridge.Event, bool) {
	id := tree.ID(st.ID)
	switch st.Action {
	case ActionAdd:
		return bridge.ResourceAdded{Parent: tree.ID(st.Parent), ID: id, Name: st.Name, Kind: domain.ParseKind(st.Kind), Payload: payload}, true
	case ActionRemove:
		return bridge.ResourceRemoved{ID: id}, true
	case ActionMove:
		return bridge.ResourceMoved{ID: id, NewParent: tree.ID(st.Parent)}, true
	case ActionEnter:
		level, _ := domain.ParseLevel(st.Level)
		return bridge.ConditionEntered{ID: id, Level: level}, true
	case ActionClear:
		level, _ := domain.ParseLevel(st.Level)
		return bridge.ConditionCleared{ID: id, Level: level}, true
	case ActionActivate:
		return bridge.ActivityChanged{ID: id, Active: true}, true
	case ActionDeactivate:
		return bridge.ActivityChanged{ID: id, Active: false}, true
	}
	return nil, false
}

func scenarioError(msg string, err error) error {
	return appErrors.New(appErrors.CodeScenarioInvalid, fmt.Sprintf("%s: %v", msg, err), err)
}
