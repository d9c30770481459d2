package transform

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the transform as a 12-element row-major array.
func (t Transform) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.m[:])
}

// UnmarshalJSON decodes a 12-element row-major array.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var m []float32
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 12 {
		return fmt.Errorf("transform: expected 12 elements, got %d", len(m))
	}
	copy(t.m[:], m)
	return nil
}
