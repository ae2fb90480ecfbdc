package utils

import "encoding/json"

// Remarshal converts a decoded JSON value (typically map[string]any) into a
// typed value by round-tripping it through encoding/json.
func Remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
