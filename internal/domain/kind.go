package domain

import "strings"

// Kind identifies what a node in the resource tree represents.
type Kind string

const (
	KindUnknown    Kind = ""
	KindRoot       Kind = "root"
	KindGroup      Kind = "group"
	KindDomain     Kind = "domain"
	KindConnection Kind = "connection"
	KindPort       Kind = "port"
	KindMC         Kind = "mc"
	KindEntity     Kind = "entity"
	KindSensor     Kind = "sensor"
	KindControl    Kind = "control"
)

var knownKinds = map[Kind]struct{}{
	KindRoot:       {},
	KindGroup:      {},
	KindDomain:     {},
	KindConnection: {},
	KindPort:       {},
	KindMC:         {},
	KindEntity:     {},
	KindSensor:     {},
	KindControl:    {},
}

// Group names created beneath domains and entities.
const (
	GroupEntities    = "Entities"
	GroupMCs         = "MCs"
	GroupConnections = "Connections"
	GroupSensors     = "Sensors"
	GroupControls    = "Controls"
)

// ParseKind normalises a kind string. Unknown kinds are kept so newer
// collaborators can introduce resource types without breaking the tree.
func ParseKind(raw string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(raw)))
}

// IsKnown reports whether k is one of the built-in kinds.
func (k Kind) IsKnown() bool {
	_, ok := knownKinds[k]
	return ok
}

// Groups returns the standard group children created with a node of
// this kind, in display order.
func (k Kind) Groups() []string {
	switch k {
	case KindDomain:
		return []string{GroupEntities, GroupMCs, GroupConnections}
	case KindEntity:
		return []string{GroupSensors, GroupControls}
	}
	return nil
}

// StartsActive reports whether nodes of this kind participate in color
// transitions from creation. Entities and MCs become active once the
// collaborator reports them present.
func (k Kind) StartsActive() bool {
	switch k {
	case KindEntity, KindMC:
		return false
	}
	return true
}

// ParentGroup returns the group a node of this kind is filed under when
// it is added directly beneath a domain or entity.
func (k Kind) ParentGroup() string {
	switch k {
	case KindEntity:
		return GroupEntities
	case KindMC:
		return GroupMCs
	case KindConnection:
		return GroupConnections
	case KindSensor:
		return GroupSensors
	case KindControl:
		return GroupControls
	}
	return ""
}
