package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type format uint8

const (
	formatYAML format = iota
	formatJSON
)

func formatOf(path string) format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return formatJSON
	}
	return formatYAML
}

// Decode parses an airspace document, either bare or wrapped in the REST
// envelope {code, message, data}.
func Decode(data []byte, f format) (AirspaceDetailsDTO, error) {
	unmarshal := yaml.Unmarshal
	if f == formatJSON {
		unmarshal = json.Unmarshal
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return AirspaceDetailsDTO{}, fmt.Errorf("empty airspace document")
	}

	var env apiResponse
	if err := unmarshal(data, &env); err == nil && env.Data != nil {
		return *env.Data, nil
	}
	var doc AirspaceDetailsDTO
	if err := unmarshal(data, &doc); err != nil {
		return AirspaceDetailsDTO{}, fmt.Errorf("decode airspace: %w", err)
	}
	return doc, nil
}

// LoadFile reads a .json, .yaml or .yml airspace document.
func LoadFile(path string) (AirspaceDetailsDTO, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return AirspaceDetailsDTO{}, fmt.Errorf("read airspace: %w", err)
	}
	doc, err := Decode(data, formatOf(path))
	if err != nil {
		return AirspaceDetailsDTO{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
