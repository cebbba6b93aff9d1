package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jvlm-go/jvlmc/namemap"
)

// overrideFile is the --name-map JSON file's shape: explicit per-symbol
// overrides layered on top of namemap.DefaultNameMapper, for the cases
// spec.md §6's transliteration policy gets wrong for a given IR
// producer's symbol conventions.
type overrideFile struct {
	Functions map[string]namemap.FunctionLocation `json:"functions"`
	Fields    map[string]namemap.FieldLocation    `json:"fields"`
}

// overrideNameMapper answers from the override tables first, falling
// back to the wrapped policy for every symbol it doesn't mention.
type overrideNameMapper struct {
	functions map[string]namemap.FunctionLocation
	fields    map[string]namemap.FieldLocation
	fallback  namemap.NameMapper
}

func (m *overrideNameMapper) LocationOfFunction(symbol string) (namemap.FunctionLocation, error) {
	if loc, ok := m.functions[symbol]; ok {
		return loc, nil
	}
	return m.fallback.LocationOfFunction(symbol)
}

func (m *overrideNameMapper) IsSpecialNew(symbol string) (string, bool) {
	return m.fallback.IsSpecialNew(symbol)
}

func (m *overrideNameMapper) LocationOfStaticField(symbol string) (namemap.FieldLocation, error) {
	if loc, ok := m.fields[symbol]; ok {
		return loc, nil
	}
	return m.fallback.LocationOfStaticField(symbol)
}

// nameMapperFromFlag resolves the --name-map flag: an empty path means
// the default policy, a non-empty one loads a JSON override file on
// top of it.
func nameMapperFromFlag(path string) (namemap.NameMapper, error) {
	if path == "" {
		return namemap.DefaultNameMapper{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jvlmc: reading --name-map file: %w", err)
	}
	var parsed overrideFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("jvlmc: parsing --name-map file: %w", err)
	}
	return &overrideNameMapper{
		functions: parsed.Functions,
		fields:    parsed.Fields,
		fallback:  namemap.DefaultNameMapper{},
	}, nil
}
