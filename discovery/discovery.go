//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package discovery contains the registry wire types shared by
// the eureka client, the metadata providers and the agent.
package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Status represents instance status
type Status string

const (
	StatusUp           Status = "UP"
	StatusDown         Status = "DOWN"
	StatusStarting     Status = "STARTING"
	StatusOutOfService Status = "OUT_OF_SERVICE"
	StatusUnknown      Status = "UNKNOWN"
)

// Registry represents the registry server response of a full fetch.
type Registry struct {
	Applications *Applications `json:"applications"`
}

// Applications represents all registered applications.
type Applications struct {
	AppsHashcode string            `json:"apps__hashcode,omitempty"`
	Application  List[Application] `json:"application"`
}

// Application represents an application and its instances.
type Application struct {
	Name     string         `json:"name"`
	Instance List[Instance] `json:"instance"`
}

// Registration represents the registration document.
type Registration struct {
	Instance *Instance `json:"instance"`
}

// List is a sequence which decodes from either a
// single json object or an array of objects.
type List[T any] []T

// UnmarshalJSON decodes both shapes to a slice.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) < 1 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}

	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}

		*l = items
		return nil
	}

	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return err
	}

	*l = List[T]{item}

	return nil
}

// Port represents eureka port, e.g. {"$": 8080, "@enabled": "true"}.
type Port struct {
	Value   int
	Enabled bool
}

type wirePort struct {
	Value   json.RawMessage `json:"$"`
	Enabled json.RawMessage `json:"@enabled"`
}

// MarshalJSON encodes the port in eureka format
func (p Port) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"$":        p.Value,
		"@enabled": strconv.FormatBool(p.Enabled),
	})
}

// UnmarshalJSON decodes the port, the value and enabled
// flag can be json strings or native json types. a bare
// port number is decoded as an enabled port.
func (p *Port) UnmarshalJSON(b []byte) error {
	var (
		w   wirePort
		err error
	)

	if b = bytes.TrimSpace(b); len(b) > 0 && b[0] != '{' {
		if p.Value, err = strconv.Atoi(unquote(b)); err != nil {
			return fmt.Errorf("invalid port: %s", b)
		}
		p.Enabled = true

		return nil
	}

	if err = json.Unmarshal(b, &w); err != nil {
		return err
	}

	if len(w.Value) > 0 {
		if p.Value, err = strconv.Atoi(unquote(w.Value)); err != nil {
			return fmt.Errorf("invalid port: %s", w.Value)
		}
	}

	if len(w.Enabled) > 0 {
		if p.Enabled, err = strconv.ParseBool(unquote(w.Enabled)); err != nil {
			return fmt.Errorf("invalid port enabled flag: %s", w.Enabled)
		}
	}

	return nil
}

// Metadata represents free-form metadata, the non-string
// values are converted to string.
type Metadata map[string]string

// UnmarshalJSON decodes the metadata
func (m *Metadata) UnmarshalJSON(b []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*m = make(Metadata, len(raw))
	for k, v := range raw {
		(*m)[k] = unquote(v)
	}

	return nil
}

// MergeMetadata returns a new metadata contains base and overlay,
// the overlay values take precedence.
func MergeMetadata(base, overlay Metadata) Metadata {
	merged := make(Metadata, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range overlay {
		merged[k] = v
	}

	return merged
}

func unquote(b json.RawMessage) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}

	return string(bytes.TrimSpace(b))
}
