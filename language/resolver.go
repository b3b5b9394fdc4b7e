// Package language normalizes free-form language identifiers to the short codes
// used by every translation, recognition and synthesis call.
package language

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Code is a canonical short language identifier such as "en" or "hi".
type Code string

const (
	// Default is returned for input that matches nothing in the table.
	Default Code = "en"
	// Auto asks the recognition and translation backends to detect the source language.
	Auto Code = "auto"
)

type entry struct {
	name string
	code Code
}

var entries = []entry{
	{"konkani", "kok"},
	{"hindi", "hi"},
	{"english", "en"},
	{"spanish", "es"},
	{"french", "fr"},
	{"german", "de"},
	{"chinese", "zh"},
	{"japanese", "ja"},
	{"korean", "ko"},
	{"russian", "ru"},
	{"arabic", "ar"},
	{"bengali", "bn"},
	{"urdu", "ur"},
	{"tamil", "ta"},
	{"telugu", "te"},
	{"marathi", "mr"},
	{"gujarati", "gu"},
	{"kannada", "kn"},
	{"malayalam", "ml"},
}

// lookup maps both full names and codes to the canonical code. Built once, never mutated.
var (
	lookup = buildLookup()
	names  = buildNames()
)

func buildLookup() map[string]Code {
	m := make(map[string]Code, len(entries)*2)
	for _, e := range entries {
		m[e.name] = e.code
		m[string(e.code)] = e.code
	}
	return m
}

func buildNames() map[Code]string {
	m := make(map[Code]string, len(entries))
	for _, e := range entries {
		m[e.code] = e.name
	}
	return m
}

// Resolve maps a language name or code to its canonical code. Matching ignores case and
// surrounding whitespace. Unknown input is logged and resolves to Default.
func Resolve(input string) Code {
	key := strings.ToLower(strings.TrimSpace(input))
	if code, ok := lookup[key]; ok {
		return code
	}
	log.Warn().Str("language", input).Str("fallback", string(Default)).Msg("unknown language, using fallback")
	return Default
}

// ResolveSource is Resolve, except that "auto" is kept as the Auto sentinel.
func ResolveSource(input string) Code {
	if strings.EqualFold(strings.TrimSpace(input), string(Auto)) {
		return Auto
	}
	return Resolve(input)
}

// KnownNames returns the sorted full language names. Codes are never listed.
func KnownNames() []string {
	out := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.name] {
			continue
		}
		seen[e.name] = true
		out = append(out, e.name)
	}
	sort.Strings(out)
	return out
}

// Name returns the full name for a canonical code, or "" when the code is not in the table.
func Name(code Code) string {
	return names[code]
}

// Known reports whether input names a language in the table.
func Known(input string) bool {
	_, ok := lookup[strings.ToLower(strings.TrimSpace(input))]
	return ok
}
