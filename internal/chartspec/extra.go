package chartspec

import "encoding/json"

// splitKnownFields decodes data as a JSON object and returns every field
// not in known, so callers can stash it in an Extra bag. Non-object inputs
// (shouldn't occur for spec nodes) yield an empty map rather than an error.
func splitKnownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	isKnown := make(map[string]bool, len(known))
	for _, k := range known {
		isKnown[k] = true
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !isKnown[k] {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}

// mergeExtra marshals known (a struct with its usual json tags) and merges
// in extra's fields, so a struct's unrecognized input fields survive a
// round trip through Unmarshal then Marshal.
func mergeExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}
