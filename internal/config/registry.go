// internal/config/registry.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Motor describes one actuator on the bus.
// Immutable after load.
type Motor struct {
	JointName string
	MotorType string
	ID        uint8
}

// Error is a malformed or incomplete motor registry.
// Fatal at startup.
type Error struct {
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("config: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// motorRecord is one registry entry before defaults are applied.
// id and bus_id are accepted as aliases.
type motorRecord struct {
	JointName *string `yaml:"joint_name"`
	MotorType *string `yaml:"motor_type"`
	ID        *int    `yaml:"id"`
	BusID     *int    `yaml:"bus_id"`
}

// LoadMotors reads a motor registry file.
// .yaml/.yml are parsed as YAML; everything else as JSON with comments.
func LoadMotors(path string) ([]Motor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Msg: "failed to read motor config", Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		data = jsonc.ToJSON(data)
	}

	motors, err := ParseMotors(data)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, &Error{Path: path, Msg: "failed to parse motor config", Err: err}
	}
	return motors, nil
}

// ParseMotors decodes a registry document.
//
// Sequence form: a missing joint_name becomes joint_<index>.
// Mapping form: a missing joint_name becomes the mapping key; entries
// are returned in document order, which callers must not rely on.
func ParseMotors(data []byte) ([]Motor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Msg: "failed to parse motor config", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &Error{Msg: "motor config is empty"}
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		motors := make([]Motor, 0, len(root.Content))
		for i, n := range root.Content {
			m, err := decodeMotor(n, fmt.Sprintf("joint_%d", i))
			if err != nil {
				return nil, &Error{Msg: fmt.Sprintf("motor %d", i), Err: err}
			}
			motors = append(motors, m)
		}
		return motors, nil

	case yaml.MappingNode:
		motors := make([]Motor, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			m, err := decodeMotor(root.Content[i+1], key)
			if err != nil {
				return nil, &Error{Msg: fmt.Sprintf("motor %q", key), Err: err}
			}
			motors = append(motors, m)
		}
		return motors, nil

	default:
		return nil, &Error{Msg: "motor config must be a list or a map of motors"}
	}
}

func decodeMotor(n *yaml.Node, defaultName string) (Motor, error) {
	var rec motorRecord
	if err := n.Decode(&rec); err != nil {
		return Motor{}, err
	}

	if rec.MotorType == nil {
		return Motor{}, fmt.Errorf("missing field motor_type")
	}

	id := rec.ID
	if id == nil {
		id = rec.BusID
	}
	if id == nil {
		return Motor{}, fmt.Errorf("missing field id")
	}
	if *id < 0 || *id > MaxBusID {
		return Motor{}, fmt.Errorf("id %d out of range 0-%d", *id, MaxBusID)
	}

	name := defaultName
	if rec.JointName != nil {
		name = *rec.JointName
	}

	return Motor{
		JointName: name,
		MotorType: *rec.MotorType,
		ID:        uint8(*id),
	}, nil
}

// IDs returns the bus ids in registry order.
func IDs(motors []Motor) []uint8 {
	ids := make([]uint8, len(motors))
	for i, m := range motors {
		ids[i] = m.ID
	}
	return ids
}

// JointNames returns the joint names in registry order.
func JointNames(motors []Motor) []string {
	names := make([]string, len(motors))
	for i, m := range motors {
		names[i] = m.JointName
	}
	return names
}
