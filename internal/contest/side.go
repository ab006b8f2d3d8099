package contest

import (
	"encoding/json"
	"fmt"
)

// Side is one of the two competing teams.
type Side int

const (
	SideA Side = iota
	SideB
)

// DefaultHolder is the side every node starts with.
const DefaultHolder = SideA

var sideNames = map[Side]string{
	SideA: "a",
	SideB: "b",
}

var sideFromName = map[string]Side{
	"a": SideA,
	"b": SideB,
}

func (s Side) String() string {
	if n, ok := sideNames[s]; ok {
		return n
	}
	return "unknown"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide accepts the wire names "a" and "b".
func ParseSide(name string) (Side, error) {
	if s, ok := sideFromName[name]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown side %q", name)
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSide(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Teams holds the display names of the two sides.
type Teams struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
}

// DefaultTeams are the team names used when none are configured.
var DefaultTeams = Teams{A: "Red", B: "Blue"}

// Name returns the display name for side, falling back to the default.
func (t Teams) Name(side Side) string {
	switch side {
	case SideA:
		if t.A != "" {
			return t.A
		}
		return DefaultTeams.A
	case SideB:
		if t.B != "" {
			return t.B
		}
		return DefaultTeams.B
	}
	return side.String()
}
