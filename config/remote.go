//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"encoding/json"
	"fmt"
)

// RemoteConfig represents configuration documents stored
// at a key/value store. each section is a json document
// under the provider prefix: instance, registry and global.
type RemoteConfig struct {
	Instance Instance
	Registry Registry
	Global   Global
}

// Decode decodes a key/value pair to the related section.
// the key should be relative to the provider prefix and
// unknown keys are ignored.
func (r *RemoteConfig) Decode(key string, value []byte) (bool, error) {
	var v interface{}

	switch key {
	case "instance":
		v = &r.Instance
	case "registry":
		v = &r.Registry
	case "global":
		v = &r.Global
	default:
		return false, nil
	}

	if err := json.Unmarshal(value, v); err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}

	return true, nil
}

// SetDefaults sets default values of all sections.
func (r *RemoteConfig) SetDefaults() {
	SetDefaultInstance(&r.Instance)
	SetDefaultRegistry(&r.Registry)
	SetDefaultGlobal(&r.Global)
}
