package equipment

import "testing"

func TestDecodeMetadataToleratesMalformedBlob(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"observation": 12}`} {
		meta := decodeMetadata(raw)
		if meta != (Metadata{}) {
			t.Fatalf("expected zero metadata for %q, got %+v", raw, meta)
		}
	}
}

func TestMetadataApplyKeepsAbsentFields(t *testing.T) {
	stored := Metadata{Observation: "back room", SprinklerEnabled: true}

	merged := stored.apply(MetadataPatch{})
	if merged != stored {
		t.Fatalf("empty patch must not change stored metadata: %+v", merged)
	}

	observation := "front desk"
	merged = stored.apply(MetadataPatch{Observation: &observation})
	if merged.Observation != "front desk" || !merged.SprinklerEnabled {
		t.Fatalf("unexpected merge result: %+v", merged)
	}

	disabled := false
	merged = stored.apply(MetadataPatch{SprinklerEnabled: &disabled})
	if merged.Observation != "back room" || merged.SprinklerEnabled {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := Metadata{Observation: "instalação atrás do balcão", SprinklerEnabled: true}
	decoded := decodeMetadata(encodeMetadata(meta))
	if decoded != meta {
		t.Fatalf("round trip changed metadata: %+v", decoded)
	}
}
