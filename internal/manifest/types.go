package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList decodes either a JSON string or a JSON array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("want string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// String joins the elements with newlines, matching how Scoop renders
// multi-line descriptions and notes.
func (s StringList) String() string {
	return strings.Join(s, "\n")
}

// License is either an SPDX identifier string or an object with an
// identifier and an optional URL.
type License struct {
	Identifier string `json:"identifier"`
	URL        string `json:"url,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *License) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = License{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*l = License{Identifier: id}
		return nil
	}
	type plain License
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("want license string or object: %w", err)
	}
	*l = License(p)
	return nil
}

// BinEntry is one shim: an executable path with an optional alias and
// arguments.
type BinEntry struct {
	Path  string
	Alias string
	Args  string
}

// Bins decodes Scoop's bin field: a string, a list of strings, or a list
// mixing strings and [path, alias, args...] lists.
type Bins []BinEntry

// UnmarshalJSON implements json.Unmarshaler.
func (bs *Bins) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*bs = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*bs = Bins{{Path: one}}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("want bin string or list: %w", err)
	}
	out := make(Bins, 0, len(items))
	for i, it := range items {
		var parts StringList
		if err := json.Unmarshal(it, &parts); err != nil {
			return fmt.Errorf("bin[%d]: %w", i, err)
		}
		var e BinEntry
		if len(parts) > 0 {
			e.Path = parts[0]
		}
		if len(parts) > 1 {
			e.Alias = parts[1]
		}
		if len(parts) > 2 {
			e.Args = strings.Join(parts[2:], " ")
		}
		out = append(out, e)
	}
	*bs = out
	return nil
}
