package transform

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"spatialcoords/pkg/coords"
)

// Spec is the serialized form of a transformation. Only the fields of the
// variant named by Type are set. A Spec carries everything needed to
// rebuild a working transformation, including its coordinate systems.
type Spec struct {
	Type Kind `json:"type" yaml:"type"`

	// Axes names the axes of a translation, scale or rotation
	Axes []string `json:"axes,omitempty" yaml:"axes,omitempty"`

	Translation []float64   `json:"translation,omitempty" yaml:"translation,omitempty"`
	Scale       []float64   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Affine      [][]float64 `json:"affine,omitempty" yaml:"affine,omitempty"`
	Rotation    [][]float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`

	// InputAxes and OutputAxes index the columns and rows of an affine matrix
	InputAxes  []string `json:"input_axes,omitempty" yaml:"input_axes,omitempty"`
	OutputAxes []string `json:"output_axes,omitempty" yaml:"output_axes,omitempty"`

	// MapAxis maps output axis names to input axis names
	MapAxis map[string]string `json:"map_axis,omitempty" yaml:"map_axis,omitempty"`

	Transformations []Spec `json:"transformations,omitempty" yaml:"transformations,omitempty"`

	Input  *coords.CoordinateSystem `json:"input,omitempty" yaml:"input,omitempty"`
	Output *coords.CoordinateSystem `json:"output,omitempty" yaml:"output,omitempty"`
}

// FromSpec rebuilds a transformation from its serialized form
func FromSpec(s Spec) (Transformation, error) {
	var (
		t   Transformation
		err error
	)
	switch s.Type {
	case KindIdentity:
		t = NewIdentity()
	case KindTranslation:
		t, err = NewTranslation(s.Translation, s.Axes)
	case KindScale:
		t, err = NewScale(s.Scale, s.Axes)
	case KindAffine:
		t, err = NewAffine(s.Affine, s.InputAxes, s.OutputAxes)
	case KindRotation:
		t, err = NewRotation(s.Rotation, s.Axes)
	case KindMapAxis:
		t, err = NewMapAxis(s.MapAxis)
	case KindSequence:
		children := make([]Transformation, len(s.Transformations))
		for i, cs := range s.Transformations {
			if children[i], err = FromSpec(cs); err != nil {
				return nil, fmt.Errorf("sequence step %d: %w", i, err)
			}
		}
		t = NewSequence(children...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
	if err != nil {
		return nil, err
	}

	for _, cs := range []*coords.CoordinateSystem{s.Input, s.Output} {
		if cs == nil {
			continue
		}
		if err := cs.Validate(); err != nil {
			return nil, err
		}
	}
	t.SetInputCoordinateSystem(s.Input)
	t.SetOutputCoordinateSystem(s.Output)
	return t, nil
}

// Clone returns an independent copy of t, coordinate systems included.
// Coordinate systems are immutable and shared with the original.
func Clone(t Transformation) (Transformation, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transformation", ErrInvalidParameters)
	}
	return FromSpec(t.ToSpec())
}

// ToJSON serializes a transformation
func ToJSON(t Transformation) ([]byte, error) {
	return json.Marshal(t.ToSpec())
}

// FromJSON parses a transformation serialized by ToJSON
func FromJSON(data []byte) (Transformation, error) {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing transformation: %w", err)
	}
	return FromSpec(s)
}

// ToDict returns the generic dictionary form of a transformation, the
// same structure as its JSON encoding.
func ToDict(t Transformation) (map[string]any, error) {
	data, err := ToJSON(t)
	if err != nil {
		return nil, err
	}
	var d map[string]any
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// FromDict rebuilds a transformation from its dictionary form
func FromDict(d map[string]any) (Transformation, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("error encoding transformation dictionary: %w", err)
	}
	return FromJSON(data)
}

// ToYAML serializes a transformation as YAML
func ToYAML(t Transformation) ([]byte, error) {
	return yaml.Marshal(t.ToSpec())
}

// FromYAML parses a transformation serialized by ToYAML
func FromYAML(data []byte) (Transformation, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing transformation: %w", err)
	}
	return FromSpec(s)
}
