// internal/config/registry_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMotors_SequenceDefaultsByPosition(t *testing.T) {
	data := []byte(`[
		{"joint_name": "shoulder_pan", "motor_type": "sts3215", "id": 1},
		{"motor_type": "sts3215", "id": 2},
		{"joint_name": "gripper", "motor_type": "sts3215", "id": 6},
		{"motor_type": "sts3215", "id": 4}
	]`)

	motors, err := ParseMotors(data)
	if err != nil {
		t.Fatalf("ParseMotors() err=%v", err)
	}

	want := []Motor{
		{JointName: "shoulder_pan", MotorType: "sts3215", ID: 1},
		{JointName: "joint_1", MotorType: "sts3215", ID: 2},
		{JointName: "gripper", MotorType: "sts3215", ID: 6},
		{JointName: "joint_3", MotorType: "sts3215", ID: 4},
	}
	if len(motors) != len(want) {
		t.Fatalf("expected %d motors, got %d", len(want), len(motors))
	}
	for i := range want {
		if motors[i] != want[i] {
			t.Fatalf("motor %d: got %+v want %+v", i, motors[i], want[i])
		}
	}
}

func TestParseMotors_MappingUsesKeyAsDefault(t *testing.T) {
	data := []byte(`{
		"elbow": {"motor_type": "sts3215", "id": 3},
		"wrist": {"joint_name": "wrist_flex", "motor_type": "sts3215", "id": 4}
	}`)

	motors, err := ParseMotors(data)
	if err != nil {
		t.Fatalf("ParseMotors() err=%v", err)
	}

	byID := map[uint8]string{}
	for _, m := range motors {
		byID[m.ID] = m.JointName
	}
	if byID[3] != "elbow" {
		t.Fatalf("id 3: expected key name, got %q", byID[3])
	}
	if byID[4] != "wrist_flex" {
		t.Fatalf("id 4: expected own name, got %q", byID[4])
	}
}

func TestParseMotors_BusIDAlias(t *testing.T) {
	motors, err := ParseMotors([]byte(`[{"motor_type": "sts3215", "bus_id": 9}]`))
	if err != nil {
		t.Fatalf("ParseMotors() err=%v", err)
	}
	if motors[0].ID != 9 {
		t.Fatalf("expected id 9, got %d", motors[0].ID)
	}
}

func TestParseMotors_MissingFields(t *testing.T) {
	cases := map[string]string{
		"motor_type": `[{"id": 1}]`,
		"id":         `[{"motor_type": "sts3215"}]`,
		"range":      `[{"motor_type": "sts3215", "id": 300}]`,
		"scalar":     `42`,
	}

	for name, doc := range cases {
		_, err := ParseMotors([]byte(doc))
		var ce *Error
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected *Error, got %v", name, err)
		}
	}
}

func TestLoadMotors_JSONCAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsoncPath := filepath.Join(dir, "motor.json")
	jsoncDoc := `[
		// leader arm
		{"joint_name": "j1", "motor_type": "sts3215", "id": 1},
		{"joint_name": "j2", "motor_type": "sts3215", "id": 2}, // trailing comma
	]`
	if err := os.WriteFile(jsoncPath, []byte(jsoncDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	yamlPath := filepath.Join(dir, "motor.yaml")
	yamlDoc := "- joint_name: j1\n  motor_type: sts3215\n  id: 1\n- motor_type: sts3215\n  id: 2\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{jsoncPath, yamlPath} {
		motors, err := LoadMotors(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if len(motors) != 2 || motors[0].JointName != "j1" || motors[1].ID != 2 {
			t.Fatalf("%s: unexpected motors %+v", p, motors)
		}
	}
}

func TestLoadMotors_ErrorCarriesPath(t *testing.T) {
	_, err := LoadMotors(filepath.Join(t.TempDir(), "missing.json"))

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ce.Path == "" {
		t.Fatalf("expected path in error")
	}
}

func TestParseMotors_RejectsBroadcastAndHeaderIDs(t *testing.T) {
	for _, id := range []string{"254", "255", "-1"} {
		data := []byte(`[{"joint_name": "j1", "motor_type": "sts3215", "id": ` + id + `}]`)
		if _, err := ParseMotors(data); err == nil {
			t.Fatalf("id %s: expected error", id)
		}
	}

	motors, err := ParseMotors([]byte(`[{"motor_type": "sts3215", "id": 253}]`))
	if err != nil || motors[0].ID != MaxBusID {
		t.Fatalf("id 253 must be accepted, got %v err=%v", motors, err)
	}
}
