// Copyright 2025 The Kubernetes Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	runtimeresolver "github.com/opengovsg/formsg-on-cdk/pkg/runtime/resolver"
)

// valueStore holds generated values. Each key is written once; later writes
// fail instead of replacing the first value.
type valueStore struct {
	mu        sync.RWMutex
	values    map[string]GeneratedValue
	byNode    map[string]map[string]any
	sensitive sets.Set[string]
}

func newValueStore() *valueStore {
	return &valueStore{
		values:    map[string]GeneratedValue{},
		byNode:    map[string]map[string]any{},
		sensitive: sets.New[string](),
	}
}

func (s *valueStore) put(v GeneratedValue) error {
	id, attr, ok := strings.Cut(v.Key, ".")
	if !ok {
		return fmt.Errorf("malformed value key %q", v.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, exists := s.values[v.Key]; exists {
		return fmt.Errorf("value %q already produced by %q", v.Key, prev.Producer)
	}
	s.values[v.Key] = v
	if s.byNode[id] == nil {
		s.byNode[id] = map[string]any{}
	}
	s.byNode[id][attr] = v.Value
	if v.Sensitive {
		s.markSensitive(v.Value)
	}
	return nil
}

// markSensitive records v so it is caught wherever it is copied. Callers
// hold the lock, or own the store exclusively.
func (s *valueStore) markSensitive(v any) {
	if str := runtimeresolver.Stringify(v); str != "" {
		s.sensitive.Insert(str)
	}
}

// attributes returns a copy of the values produced by node id.
func (s *valueStore) attributes(id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.byNode[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(attrs), true
}

func (s *valueStore) isSensitive(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key].Sensitive
}

// hasSensitive reports whether node id produced any sensitive value.
func (s *valueStore) hasSensitive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for attr := range s.byNode[id] {
		if s.values[id+"."+attr].Sensitive {
			return true
		}
	}
	return false
}

// containsSensitive reports whether str is a sensitive value or embeds one.
// Values shorter than minEmbeddedLength only match whole strings.
func (s *valueStore) containsSensitive(str string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for secret := range s.sensitive {
		if embeds(str, secret) {
			return true
		}
	}
	return false
}

// minEmbeddedLength is the shortest sensitive value searched for inside
// longer strings. Shorter ones, like a four letter parameter, occur in
// unrelated names too often to be told apart.
const minEmbeddedLength = 8

func embeds(str, secret string) bool {
	if len(secret) < minEmbeddedLength {
		return str == secret
	}
	return strings.Contains(str, secret)
}

// snapshot returns every value sorted by key.
func (s *valueStore) snapshot() []GeneratedValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Values(s.values))
	slices.SortFunc(out, func(a, b GeneratedValue) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// sensitiveValues returns the sensitive strings, longest first, so that
// redaction replaces a secret before any secret it contains.
func (s *valueStore) sensitiveValues() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sensitive.UnsortedList()
	slices.SortFunc(out, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return out
}
