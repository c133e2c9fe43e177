// Package codec reads and writes script documents in YAML or JSON.
//
// A document holds either one script or a list under "scripts":
//
//	id: welcome
//	root:
//	  type: join
//	  children:
//	    - type: send_message
//	      params: {text: "Welcome {player}"}
//
// Both formats are parsed into generic maps and decoded with mapstructure,
// so unknown keys are reported the same way regardless of format.
// Decoded scripts are not validated; the registry does that at registration.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/tessera/pkg/domain"
)

// Format is a document encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatFor returns the format implied by a file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, true
	case ".json":
		return JSON, true
	}
	return "", false
}

type document struct {
	Scripts []*domain.Script `mapstructure:"scripts"`
}

// Decode parses every script of a document.
func Decode(data []byte, format Format) ([]*domain.Script, error) {
	raw, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode: document must be a mapping, got %T", raw)
	}

	if _, multi := m["scripts"]; multi {
		var doc document
		if err := decode(m, &doc); err != nil {
			return nil, err
		}
		return doc.Scripts, nil
	}
	var s domain.Script
	if err := decode(m, &s); err != nil {
		return nil, err
	}
	return []*domain.Script{&s}, nil
}

// DecodeScript parses a document holding exactly one script.
func DecodeScript(data []byte, format Format) (*domain.Script, error) {
	scripts, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	if len(scripts) != 1 {
		return nil, fmt.Errorf("decode: expected one script, got %d", len(scripts))
	}
	return scripts[0], nil
}

// DecodeEvent parses a host event. "time" may be an RFC 3339 string.
func DecodeEvent(data []byte, format Format) (domain.Event, error) {
	var ev domain.Event
	raw, err := parse(data, format)
	if err != nil {
		return ev, err
	}
	err = decode(raw, &ev)
	return ev, err
}

// Encode writes scripts as one document. A single script is written bare.
func Encode(scripts []*domain.Script, format Format) ([]byte, error) {
	var v any = map[string]any{"scripts": scripts}
	if len(scripts) == 1 {
		v = scripts[0]
	}
	switch format {
	case JSON:
		return json.MarshalIndent(v, "", "  ")
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("encode: unsupported format %q", format)
}

// ReadFile decodes a script document from disk.
func ReadFile(path string) ([]*domain.Script, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, fmt.Errorf("read %s: unsupported extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scripts, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return scripts, nil
}

// ReadDir decodes every YAML/JSON document under dir, in lexical path order.
func ReadDir(dir string) ([]*domain.Script, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if _, ok := FormatFor(path); ok && !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []*domain.Script
	for _, p := range paths {
		scripts, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, scripts...)
	}
	return out, nil
}

func parse(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case JSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode: unsupported format %q", format)
	}
	return raw, nil
}

func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      output,
		ErrorUnused: true,
		TagName:     "mapstructure",
		DecodeHook:  mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
