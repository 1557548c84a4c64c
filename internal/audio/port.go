package audio

import "fmt"

// MaxPatchPorts bounds the number of sources and of sinks of one patch
const MaxPatchPorts = 16

// PortRole is the direction a port plays in a patch
type PortRole int32

const (
	PortRoleNone PortRole = iota
	PortRoleSource
	PortRoleSink
)

var portRoles = newEnumTable("port role", map[PortRole]string{
	PortRoleNone:   "none",
	PortRoleSource: "source",
	PortRoleSink:   "sink",
})

func (r PortRole) String() string { return portRoles.format(r) }

// MarshalText implements encoding.TextMarshaler
func (r PortRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (r *PortRole) UnmarshalText(text []byte) error {
	v, err := portRoles.parse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// PortType distinguishes device ports from mix ports
type PortType int32

const (
	PortTypeNone PortType = iota
	PortTypeDevice
	PortTypeMix
)

var portTypes = newEnumTable("port type", map[PortType]string{
	PortTypeNone:   "none",
	PortTypeDevice: "device",
	PortTypeMix:    "mix",
})

func (t PortType) String() string { return portTypes.format(t) }

// MarshalText implements encoding.TextMarshaler
func (t PortType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (t *PortType) UnmarshalText(text []byte) error {
	v, err := portTypes.parse(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PortConfig names one patch endpoint
type PortConfig struct {
	ID   PortHandle `json:"id"`
	Role PortRole   `json:"role"`
	Type PortType   `json:"type"`
}

func (c PortConfig) String() string {
	return fmt.Sprintf("%s %s #%d", c.Type, c.Role, c.ID)
}

// Patch is a directed connection from Sources to Sinks
type Patch struct {
	Sources []PortConfig `json:"sources"`
	Sinks   []PortConfig `json:"sinks"`
}

// RoutedPortID is the endpoint that identifies where a patch routes to:
// the first sink when the first source is a mix port, otherwise the first source.
func (p *Patch) RoutedPortID() PortHandle {
	if p == nil || len(p.Sources) == 0 || len(p.Sinks) == 0 {
		return PortHandleNone
	}
	if p.Sources[0].Type == PortTypeMix {
		return p.Sinks[0].ID
	}
	return p.Sources[0].ID
}

// References reports whether id appears on either side of p
func (p *Patch) References(id PortHandle) bool {
	for _, c := range p.Sources {
		if c.ID == id {
			return true
		}
	}
	for _, c := range p.Sinks {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of p
func (p *Patch) Clone() *Patch {
	return &Patch{
		Sources: append([]PortConfig(nil), p.Sources...),
		Sinks:   append([]PortConfig(nil), p.Sinks...),
	}
}

// PortInfo is a value snapshot of a port returned by listing operations
type PortInfo struct {
	ID         PortHandle `json:"id"`
	Role       PortRole   `json:"role"`
	Type       PortType   `json:"type"`
	Name       string     `json:"name"`
	Module     string     `json:"module"`
	DeviceType DeviceType `json:"deviceType,omitempty"`
	Address    string     `json:"address,omitempty"`
	IO         IOHandle   `json:"io,omitempty"`
	Profiles   Profiles   `json:"profiles,omitempty"`
}
