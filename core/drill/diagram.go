package drill

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/practrac/practrac/core"
)

// Court diagram element types
const (
	ElementPlayer = "player"
	ElementBall   = "ball"
	ElementCone   = "cone"
	ElementArrow  = "arrow"
	ElementLine   = "line"
	ElementText   = "text"
)

const maxDiagramElements = 500

var (
	courtTypes   = []string{"full", "half"}
	elementTypes = []string{ElementPlayer, ElementBall, ElementCone, ElementArrow, ElementLine, ElementText}
)

// diagram is the part of the court diagram document the service checks.
// Everything else (colors, labels, control points...) belongs to the editor and is kept as is.
type diagram struct {
	Court    string           `json:"court"`
	Elements []diagramElement `json:"elements"`
}

type diagramElement struct {
	Type string   `json:"type"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	X2   *float64 `json:"x2"`
	Y2   *float64 `json:"y2"`
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func contains(list []string, val string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

func inCourt(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 1)
}

func diagramError(msg string, args ...interface{}) error {
	msg = fmt.Sprintf(msg, args...)
	return core.NewValidationError(nil, core.FieldError{Field: "diagram", Error: msg})
}

// ValidateDiagram checks the structure of a court diagram document:
// a known court type and elements of a known type whose coordinates, relative to the court, are within [0, 1].
func ValidateDiagram(raw json.RawMessage) error {
	var d diagram
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&d); err != nil {
		return diagramError("invalid diagram document")
	}

	if !contains(courtTypes, d.Court) {
		return diagramError("court must be one of full, half")
	}
	if len(d.Elements) > maxDiagramElements {
		return diagramError("a diagram cannot have more than %d elements", maxDiagramElements)
	}
	for i, el := range d.Elements {
		if !contains(elementTypes, el.Type) {
			return diagramError("elements[%d]: unknown element type %q", i, el.Type)
		}
		if el.X == nil || el.Y == nil {
			return diagramError("elements[%d]: x and y are required", i)
		}
		if !(inCourt(el.X) && inCourt(el.Y) && inCourt(el.X2) && inCourt(el.Y2)) {
			return diagramError("elements[%d]: coordinates must be between 0 and 1", i)
		}
		if (el.Type == ElementArrow || el.Type == ElementLine) && (el.X2 == nil || el.Y2 == nil) {
			return diagramError("elements[%d]: %s requires x2 and y2", i, el.Type)
		}
	}
	return nil
}
