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

package parser

import (
	"fmt"
	"strings"
)

const (
	exprOpen  = "${"
	exprClose = '}'
)

// extractExpressions returns the bodies of every ${...} placeholder in s, in
// order of appearance. Braces inside the body are balanced, and braces inside
// quoted CEL string literals are ignored, so "${ {'a': 1}['a'] }" is a single
// expression.
func extractExpressions(s string) ([]string, error) {
	var exprs []string
	for i := 0; i < len(s); {
		start := strings.Index(s[i:], exprOpen)
		if start < 0 {
			break
		}
		start += i
		end, err := matchClose(s, start+len(exprOpen))
		if err != nil {
			return nil, err
		}
		body := strings.TrimSpace(s[start+len(exprOpen) : end])
		if body == "" {
			return nil, fmt.Errorf("empty expression at offset %d in %q", start, s)
		}
		exprs = append(exprs, body)
		i = end + 1
	}
	return exprs, nil
}

// matchClose returns the index of the brace closing the placeholder whose
// body starts at from.
func matchClose(s string, from int) (int, error) {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case exprClose:
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, fmt.Errorf("unterminated expression starting at offset %d in %q", from-len(exprOpen), s)
}

// isStandaloneExpression reports whether s is exactly one placeholder with
// nothing around it.
func isStandaloneExpression(s string) (bool, error) {
	if !strings.HasPrefix(s, exprOpen) || s[len(s)-1] != exprClose {
		return false, nil
	}
	end, err := matchClose(s, len(exprOpen))
	if err != nil {
		return false, err
	}
	return end == len(s)-1, nil
}

// Interpolate renders a template by replacing each placeholder, in order,
// with the string returned by render for that placeholder's body.
func Interpolate(s string, render func(body string) (string, error)) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], exprOpen)
		if start < 0 {
			break
		}
		start += i
		end, err := matchClose(s, start+len(exprOpen))
		if err != nil {
			return "", err
		}
		out, err := render(strings.TrimSpace(s[start+len(exprOpen) : end]))
		if err != nil {
			return "", err
		}
		b.WriteString(s[i:start])
		b.WriteString(out)
		i = end + 1
	}
	b.WriteString(s[i:])
	return b.String(), nil
}
