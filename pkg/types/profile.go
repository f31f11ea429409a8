package types

import (
	"encoding/json"
	"strconv"
)

// ProfileSummary is an open record. The backend owns the schema and is
// free to grow it, only id and name are required here, everything else
// rides along in Extra untouched.
type ProfileSummary struct {
	Id    string
	Name  string
	Extra map[string]json.RawMessage
}

func (p *ProfileSummary) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		p.Id = rawToString(v)
		delete(raw, "id")
	}
	if v, ok := raw["name"]; ok {
		p.Name = rawToString(v)
		delete(raw, "name")
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

func (p ProfileSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	id, err := json.Marshal(p.Id)
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, err
	}
	out["id"] = id
	out["name"] = name
	return json.Marshal(out)
}

// rawToString accepts both string and numeric ids, some backends send
// either depending on the record's age.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// GetString reads a string field from the extension bag.
func (p ProfileSummary) GetString(key string) (string, bool) {
	raw, ok := p.Extra[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// GetBool tolerates "true"/"false" sent as strings.
func (p ProfileSummary) GetBool(key string) bool {
	raw, ok := p.Extra[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseBool(s)
		return err == nil && v
	}
	return false
}

// GetInt tolerates numbers sent as strings.
func (p ProfileSummary) GetInt(key string) (int, bool) {
	raw, ok := p.Extra[key]
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v, true
		}
	}
	return 0, false
}

// GetStrings reads a string list field, a single string becomes a one
// element list.
func (p ProfileSummary) GetStrings(key string) []string {
	raw, ok := p.Extra[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}
