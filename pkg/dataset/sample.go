// Package dataset defines the tabular sample model shared by all detectors.
package dataset

import (
	"fmt"
	"sort"
)

// Sample is a single input row: an identifier plus named numeric features.
// Samples are built once per row and not mutated after they are handed to
// a detector.
type Sample struct {
	id       string
	features map[string]float64
}

// NewSample creates an empty sample with the given identifier.
func NewSample(id string) *Sample {
	return &Sample{
		id:       id,
		features: make(map[string]float64),
	}
}

// AddFeature records a named feature value. Adding the same name twice
// overwrites the previous value.
func (s *Sample) AddFeature(name string, value float64) {
	s.features[name] = value
}

// ID returns the sample identifier.
func (s *Sample) ID() string {
	return s.id
}

// Feature returns the value of a named feature and whether it exists.
func (s *Sample) Feature(name string) (float64, bool) {
	v, ok := s.features[name]
	return v, ok
}

// NumFeatures returns the number of features carried by the sample.
func (s *Sample) NumFeatures() int {
	return len(s.features)
}

// FeatureNames returns the feature names in sorted order. Insertion order
// is irrelevant for scoring, so a stable order keeps vector layouts
// reproducible.
func (s *Sample) FeatureNames() []string {
	names := make([]string, 0, len(s.features))
	for name := range s.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Vector projects the sample onto the given feature order. It fails if the
// sample is missing any of the requested features.
func (s *Sample) Vector(names []string) ([]float64, error) {
	vec := make([]float64, len(names))
	for i, name := range names {
		v, ok := s.features[name]
		if !ok {
			return nil, fmt.Errorf("sample %s: missing feature %q", s.id, name)
		}
		vec[i] = v
	}
	return vec, nil
}

// Matrix projects a slice of samples onto a shared feature order,
// producing one row per sample.
func Matrix(samples []*Sample, names []string) ([][]float64, error) {
	rows := make([][]float64, len(samples))
	for i, s := range samples {
		vec, err := s.Vector(names)
		if err != nil {
			return nil, err
		}
		rows[i] = vec
	}
	return rows, nil
}
