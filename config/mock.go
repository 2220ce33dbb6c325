//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MockConfig represents mock configuration
type MockConfig struct {
	MInstance *Instance
	MRegistry *Registry
	MGlobal   *Global

	MInformer chan struct{}

	LogOutput *MemSink

	logger *zap.Logger
}

// MemSink repesents memory destination for logging
type MemSink struct {
	sync.Mutex
	*bytes.Buffer
}

var (
	sinkOnce  sync.Once
	sinkSeq   uint64
	sinks     = map[string]*MemSink{}
	sinksLock sync.Mutex
)

// NewMockConfig constructs mock configuration
// it writes logs to memory and accessable from LogOutput.
func NewMockConfig() *MockConfig {
	var (
		err error
		m   = &MockConfig{
			MInstance: &Instance{},
			MRegistry: &Registry{},
			MGlobal:   &Global{Version: "0.0.0"},
		}
	)

	sinkOnce.Do(func() {
		zap.RegisterSink("memory", func(u *url.URL) (zap.Sink, error) {
			sinksLock.Lock()
			defer sinksLock.Unlock()

			s, ok := sinks[u.Host]
			if !ok {
				return nil, fmt.Errorf("memory sink %s not found", u.Host)
			}

			return s, nil
		})
	})

	id := fmt.Sprintf("sink%d", atomic.AddUint64(&sinkSeq, 1))
	m.LogOutput = &MemSink{Buffer: new(bytes.Buffer)}

	sinksLock.Lock()
	sinks[id] = m.LogOutput
	sinksLock.Unlock()

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"memory://" + id}
	cfg.DisableStacktrace = true
	cfg.Encoding = "json"

	m.logger, err = cfg.Build()
	if err != nil {
		panic(err)
	}

	return m
}

// Instance returns instance configuration
func (m *MockConfig) Instance() *Instance {
	return m.MInstance
}

// Registry returns registry configuration
func (m *MockConfig) Registry() *Registry {
	return m.MRegistry
}

// Global returns global configuration
func (m *MockConfig) Global() *Global {
	return m.MGlobal
}

// Informer returns informer channel
func (m *MockConfig) Informer() chan struct{} {
	return m.MInformer
}

// Update doesn't do anything
func (m *MockConfig) Update() error {
	return nil
}

// Logger returns logging handler
func (m *MockConfig) Logger() *zap.Logger {
	return m.logger
}

// Write writes log entry to the memory buffer.
func (s *MemSink) Write(p []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	return s.Buffer.Write(p)
}

// String returns whole logs.
func (s *MemSink) String() string {
	s.Lock()
	defer s.Unlock()
	return s.Buffer.String()
}

// Reset clears the logs.
func (s *MemSink) Reset() {
	s.Lock()
	defer s.Unlock()
	s.Buffer.Reset()
}

// Close satisfies zap.Sink.
func (s *MemSink) Close() error { return nil }

// Sync satisfies zap.Sink.
func (s *MemSink) Sync() error { return nil }

// Unmarshal returns the first log entry and resets the logs.
func (s *MemSink) Unmarshal() map[string]string {
	entries := s.UnmarshalSlice()
	s.Reset()

	if len(entries) < 1 {
		return map[string]string{}
	}

	return entries[0]
}

// UnmarshalSlice returns all log entries.
func (s *MemSink) UnmarshalSlice() []map[string]string {
	var entries []map[string]string

	s.Lock()
	b := append([]byte(nil), s.Bytes()...)
	s.Unlock()

	scanner := bufio.NewScanner(bytes.NewReader(b))

	for scanner.Scan() {
		raw := make(map[string]interface{})
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			continue
		}

		entry := make(map[string]string)
		for k, v := range raw {
			entry[k] = fmt.Sprint(v)
		}

		entries = append(entries, entry)
	}

	return entries
}
