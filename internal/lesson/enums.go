package lesson

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Closed enums for authored content. Unknown names are rejected at load time. The zero
// value of each is unset, which is what a missing YAML key decodes to; Validate rejects it.

type Color int

const (
	ColorUnset Color = iota
	ColorBlue
	ColorGreen
	ColorRed
	ColorAmber
	ColorPurple
)

var AllColors = []Color{ColorBlue, ColorGreen, ColorRed, ColorAmber, ColorPurple}

var colorNames = map[Color]string{
	ColorBlue:   "blue",
	ColorGreen:  "green",
	ColorRed:    "red",
	ColorAmber:  "amber",
	ColorPurple: "purple",
}

func (c Color) String() string {
	if n, ok := colorNames[c]; ok {
		return n
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// ParseColor maps an authored color name onto the enum.
func ParseColor(s string) (Color, error) {
	for c, n := range colorNames {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseColor(node.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) MarshalYAML() (any, error) { return c.String(), nil }

type Stack int

const (
	StackUnset Stack = iota
	StackStock
	StackDebt
)

func (s Stack) String() string {
	switch s {
	case StackStock:
		return "stock"
	case StackDebt:
		return "debt"
	}
	return fmt.Sprintf("stack(%d)", int(s))
}

func ParseStack(s string) (Stack, error) {
	switch s {
	case "stock":
		return StackStock, nil
	case "debt":
		return StackDebt, nil
	}
	return 0, fmt.Errorf("unknown stack %q", s)
}

func (s *Stack) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseStack(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Stack) MarshalYAML() (any, error) { return s.String(), nil }

// Pose is the narrator's stance for a step.
type Pose int

const (
	PoseUnset Pose = iota
	PoseWaving
	PosePresenting
	PoseWhispering
	PoseSerious
)

var poseNames = map[Pose]string{
	PoseWaving:     "waving",
	PosePresenting: "presenting",
	PoseWhispering: "whispering",
	PoseSerious:    "serious",
}

func (p Pose) String() string {
	if n, ok := poseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("pose(%d)", int(p))
}

func ParsePose(s string) (Pose, error) {
	for p, n := range poseNames {
		if n == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pose %q", s)
}

func (p *Pose) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParsePose(node.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Pose) MarshalYAML() (any, error) { return p.String(), nil }

// Glyph is the narrator portrait drawn for the pose.
func (p Pose) Glyph() string {
	switch p {
	case PoseWaving:
		return "(^o^)/"
	case PosePresenting:
		return "(•‿•)☞"
	case PoseWhispering:
		return "(¬‿¬)…"
	case PoseSerious:
		return "(ಠ_ಠ)"
	}
	return "(•_•)"
}

// Caption describes the pose in words.
func (p Pose) Caption() string {
	switch p {
	case PoseWaving:
		return "waving hello"
	case PosePresenting:
		return "presenting the chart"
	case PoseWhispering:
		return "whispering a tip"
	case PoseSerious:
		return "old-school accountant"
	}
	return ""
}
