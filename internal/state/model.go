package state

import (
	"fmt"
	"strings"
)

// Point is a map-local coordinate. The origin is the bottom-left corner of the
// base image and one unit is one image pixel at load time.
type Point struct{ X, Y float64 }

// Kind tags what a stroke does to the fog.
type Kind int

const (
	Reveal Kind = iota
	Hide
)

func (k Kind) String() string {
	switch k {
	case Reveal:
		return "reveal"
	case Hide:
		return "hide"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tool selects the shape recorded for new gestures.
type Tool int

const (
	ToolPaint Tool = iota
	ToolArea
)

func (t Tool) String() string {
	switch t {
	case ToolPaint:
		return "paint"
	case ToolArea:
		return "area"
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ParseTool maps a tool name from config or the command line to a Tool.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paint", "":
		return ToolPaint, nil
	case "area":
		return ToolArea, nil
	}
	return ToolPaint, fmt.Errorf("unknown tool %q", s)
}

// DefaultRadius is the paint disc radius in image pixels.
const DefaultRadius = 50.0
