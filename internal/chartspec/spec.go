// Package chartspec models the JSON Vega specification tree that the
// planner walks (spec.md section 4.D, component D). Every struct carries
// an Extra bag of whatever JSON fields this module doesn't interpret, so
// fields this core never needed to understand survive a round trip with
// their values intact (not byte-for-byte: key order and whitespace of the
// re-encoded JSON may differ) -- the same forward-compatibility discipline the teacher
// applies to HCL bodies it partially decodes (internal/configs, which
// keeps an hcl.Body remainder around a partially-decoded schema).
package chartspec

import "encoding/json"

// Spec is the root of a Vega specification.
type Spec struct {
	Signals []Signal `json:"signals,omitempty"`
	Data    []Data   `json:"data,omitempty"`
	Scales  []Scale  `json:"scales,omitempty"`
	Marks   []Mark   `json:"marks,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var specKnownFields = []string{"signals", "data", "scales", "marks"}

func (s *Spec) UnmarshalJSON(data []byte) error {
	type alias Spec
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, specKnownFields)
	if err != nil {
		return err
	}
	*s = Spec(a)
	s.Extra = extra
	return nil
}

func (s Spec) MarshalJSON() ([]byte, error) {
	type alias Spec
	return mergeExtra(alias(s), s.Extra)
}

// SignalOn is one `on` trigger entry: `{events, update}`.
type SignalOn struct {
	Events string `json:"events"`
	Update string `json:"update,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var signalOnKnownFields = []string{"events", "update"}

func (s *SignalOn) UnmarshalJSON(data []byte) error {
	type alias SignalOn
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, signalOnKnownFields)
	if err != nil {
		return err
	}
	*s = SignalOn(a)
	s.Extra = extra
	return nil
}

func (s SignalOn) MarshalJSON() ([]byte, error) {
	type alias SignalOn
	return mergeExtra(alias(s), s.Extra)
}

// Signal is a named scalar with an optional initial Value, a reactive
// Update expression, and zero or more On triggers.
type Signal struct {
	Name   string          `json:"name"`
	Value  json.RawMessage `json:"value,omitempty"`
	Update string          `json:"update,omitempty"`
	On     []SignalOn      `json:"on,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var signalKnownFields = []string{"name", "value", "update", "on"}

func (s *Signal) UnmarshalJSON(data []byte) error {
	type alias Signal
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, signalKnownFields)
	if err != nil {
		return err
	}
	*s = Signal(a)
	s.Extra = extra
	return nil
}

func (s Signal) MarshalJSON() ([]byte, error) {
	type alias Signal
	return mergeExtra(alias(s), s.Extra)
}

// Transform is one raw `{"type": "...", ...}` transform definition. The
// fields a given type understands are decoded lazily by
// internal/chartspec's transform translator (translate.go); Params keeps
// the full raw object so an unrecognized transform type is preserved
// rather than silently dropped.
type Transform struct {
	Type   string
	Params json.RawMessage
}

func (t *Transform) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	t.Type = head.Type
	t.Params = append(json.RawMessage(nil), data...)
	return nil
}

func (t Transform) MarshalJSON() ([]byte, error) {
	if t.Params != nil {
		return t.Params, nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
	}{t.Type})
}

// Data is a named dataset: exactly one of URL, Values, or Source should be
// set, mirroring task.Kind's DataURL/DataValues/DataSource split.
type Data struct {
	Name      string          `json:"name"`
	URL       string          `json:"url,omitempty"`
	Format    json.RawMessage `json:"format,omitempty"`
	Values    json.RawMessage `json:"values,omitempty"`
	Source    string          `json:"source,omitempty"`
	Transform []Transform     `json:"transform,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var dataKnownFields = []string{"name", "url", "format", "values", "source", "transform"}

func (d *Data) UnmarshalJSON(data []byte) error {
	type alias Data
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, dataKnownFields)
	if err != nil {
		return err
	}
	*d = Data(a)
	d.Extra = extra
	return nil
}

func (d Data) MarshalJSON() ([]byte, error) {
	type alias Data
	return mergeExtra(alias(d), d.Extra)
}

// Scale is a named scale; Domain and Range may each reference a dataset
// field (`{"data": ..., "field": ...}`) or a signal (`{"signal": ...}`) in
// addition to literal values, so both are kept raw and interpreted by
// chartspec's dependency pass rather than fully modeled here.
type Scale struct {
	Name   string          `json:"name"`
	Type   string          `json:"type,omitempty"`
	Domain json.RawMessage `json:"domain,omitempty"`
	Range  json.RawMessage `json:"range,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var scaleKnownFields = []string{"name", "type", "domain", "range"}

func (s *Scale) UnmarshalJSON(data []byte) error {
	type alias Scale
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, scaleKnownFields)
	if err != nil {
		return err
	}
	*s = Scale(a)
	s.Extra = extra
	return nil
}

func (s Scale) MarshalJSON() ([]byte, error) {
	type alias Scale
	return mergeExtra(alias(s), s.Extra)
}

// MarkFrom is a mark's `from` clause, naming the dataset it's drawn from.
type MarkFrom struct {
	Data string `json:"data,omitempty"`
}

// EncodeChannel is one property of one encoding set (`{"field": ...}`,
// `{"signal": ...}`, `{"scale": ..., "field": ...}`, or a literal
// `{"value": ...}`).
type EncodeChannel struct {
	Field  string          `json:"field,omitempty"`
	Signal string          `json:"signal,omitempty"`
	Scale  string          `json:"scale,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Mark is a visual mark, or (when Type == "group") a nested scope that
// introduces its own Signals/Data/Scales/Marks -- the group-mark hierarchy
// ScopedVariable.Scope indexes into (spec.md section 3 "ScopedVariable").
type Mark struct {
	Type   string                              `json:"type"`
	From   *MarkFrom                           `json:"from,omitempty"`
	Encode map[string]map[string]EncodeChannel  `json:"encode,omitempty"`

	// Present only when Type == "group".
	Signals []Signal `json:"signals,omitempty"`
	Data    []Data   `json:"data,omitempty"`
	Scales  []Scale  `json:"scales,omitempty"`
	Marks   []Mark   `json:"marks,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var markKnownFields = []string{"type", "from", "encode", "signals", "data", "scales", "marks"}

func (m *Mark) UnmarshalJSON(data []byte) error {
	type alias Mark
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitKnownFields(data, markKnownFields)
	if err != nil {
		return err
	}
	*m = Mark(a)
	m.Extra = extra
	return nil
}

func (m Mark) MarshalJSON() ([]byte, error) {
	type alias Mark
	return mergeExtra(alias(m), m.Extra)
}

// IsGroup reports whether this mark introduces a nested scope.
func (m Mark) IsGroup() bool { return m.Type == "group" }
