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

// Package secrets generates random secret values, such as database
// passwords and the per-deployment naming suffix.
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	"math/big"
	mathrand "math/rand/v2"
	"strings"
)

const (
	lowercase   = "abcdefghijklmnopqrstuvwxyz"
	uppercase   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// DefaultLength matches the default password length of AWS Secrets
	// Manager.
	DefaultLength = 32
)

// Request describes the secret to generate.
type Request struct {
	// Key identifies the secret within a deployment. Seeded generators
	// derive the value from it, so it must be stable across runs.
	Key string

	Length             int
	ExcludeCharacters  string
	ExcludePunctuation bool
	ExcludeUppercase   bool
	ExcludeLowercase   bool
	ExcludeNumbers     bool
}

// Alphabet returns the characters a value for r may contain.
func (r Request) Alphabet() string {
	var b strings.Builder
	if !r.ExcludeLowercase {
		b.WriteString(lowercase)
	}
	if !r.ExcludeUppercase {
		b.WriteString(uppercase)
	}
	if !r.ExcludeNumbers {
		b.WriteString(digits)
	}
	if !r.ExcludePunctuation {
		b.WriteString(punctuation)
	}
	return strings.Map(func(c rune) rune {
		if strings.ContainsRune(r.ExcludeCharacters, c) {
			return -1
		}
		return c
	}, b.String())
}

func (r Request) validate() (string, int, error) {
	length := r.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < 0 {
		return "", 0, fmt.Errorf("secret %q: negative length %d", r.Key, length)
	}
	alphabet := r.Alphabet()
	if alphabet == "" {
		return "", 0, fmt.Errorf("secret %q: every character is excluded", r.Key)
	}
	return alphabet, length, nil
}

// Generator produces secret values.
type Generator interface {
	Generate(Request) (string, error)
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() Generator { return cryptoGenerator{} }

type cryptoGenerator struct{}

func (cryptoGenerator) Generate(r Request) (string, error) {
	alphabet, length, err := r.validate()
	if err != nil {
		return "", err
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("secret %q: %w", r.Key, err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// NewSeededGenerator returns a deterministic Generator. The value for a
// request depends only on seed and Request, never on call order, so
// concurrent resolution yields the same values as sequential resolution.
// Use it for tests and reproducible previews, never for real deployments.
func NewSeededGenerator(seed uint64) Generator { return seededGenerator{seed: seed} }

type seededGenerator struct {
	seed uint64
}

func (g seededGenerator) Generate(r Request) (string, error) {
	if r.Key == "" {
		return "", errors.New("seeded secrets require a key")
	}
	alphabet, length, err := r.validate()
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(r.Key))
	rng := mathrand.New(mathrand.NewPCG(g.seed, h.Sum64()))
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(out), nil
}
