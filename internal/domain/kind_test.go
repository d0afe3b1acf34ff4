package domain

import (
	"reflect"
	"testing"
)

func TestKindGroups(t *testing.T) {
	if got := KindDomain.Groups(); !reflect.DeepEqual(got, []string{GroupEntities, GroupMCs, GroupConnections}) {
		t.Fatalf("unexpected domain groups %v", got)
	}
	if got := KindEntity.Groups(); !reflect.DeepEqual(got, []string{GroupSensors, GroupControls}) {
		t.Fatalf("unexpected entity groups %v", got)
	}
	if KindSensor.Groups() != nil {
		t.Fatalf("sensors have no groups")
	}
}

func TestKindDefaults(t *testing.T) {
	if KindEntity.StartsActive() || KindMC.StartsActive() {
		t.Fatalf("entities and MCs start inactive")
	}
	if !KindSensor.StartsActive() || !KindDomain.StartsActive() {
		t.Fatalf("sensors and domains start active")
	}
	if ParseKind(" Sensor ") != KindSensor {
		t.Fatalf("expected ParseKind to normalise")
	}
	if ParseKind("fan-tray").IsKnown() {
		t.Fatalf("fan-tray is not a built-in kind")
	}
	if KindControl.ParentGroup() != GroupControls {
		t.Fatalf("controls file under Controls")
	}
}
