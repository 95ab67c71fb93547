package equipment

import "encoding/json"

// Metadata is the typed form of the free-form blob stored on each equipment
// row: operator observations plus the sprinkler module switch.
type Metadata struct {
	Observation      string `json:"observation"`
	SprinklerEnabled bool   `json:"sprinkler_enabled"`
}

// MetadataPatch carries the metadata fields present in an update payload.
// Nil pointers mean "keep the stored value".
type MetadataPatch struct {
	Observation      *string
	SprinklerEnabled *bool
}

// decodeMetadata parses a stored blob. Malformed or empty stored JSON yields
// the zero Metadata rather than leaking arbitrary keys into the merge.
func decodeMetadata(raw string) Metadata {
	var meta Metadata
	if raw == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return Metadata{}
	}
	return meta
}

// apply overlays the present patch fields on the stored metadata.
func (m Metadata) apply(patch MetadataPatch) Metadata {
	if patch.Observation != nil {
		m.Observation = *patch.Observation
	}
	if patch.SprinklerEnabled != nil {
		m.SprinklerEnabled = *patch.SprinklerEnabled
	}
	return m
}

func encodeMetadata(meta Metadata) string {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
