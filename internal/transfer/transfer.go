// Package transfer moves templates in and out of the application as
// shareable files.
package transfer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/reportwriter/internal/model"
)

// ExportedBy is written into every exported template file.
const ExportedBy = "Report Writer"

// ErrInvalidTemplate is returned for an import file that is not a usable
// template export.
var ErrInvalidTemplate = errors.New("invalid template file")

// Format is the encoding of a template file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file name: YAML for .yaml and .yml,
// JSON otherwise.
func FormatFor(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Encode wraps a template in the export envelope.
func Encode(tmpl *model.Template, f Format, now time.Time) ([]byte, error) {
	env := model.TemplateExport{
		Template:   tmpl,
		ExportedAt: now.UTC(),
		ExportedBy: ExportedBy,
		Version:    model.TemplateExportVersion,
	}
	switch f {
	case FormatYAML:
		// Sections go through JSON first so YAML carries the same field
		// names the JSON form uses.
		var doc any
		data, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		return data, nil
	}
}

// Decode reads an export envelope. Files without a template, a name or a
// sections list are rejected with ErrInvalidTemplate.
func Decode(data []byte, f Format) (*model.TemplateExport, error) {
	if f == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		converted, err := json.Marshal(stringKeys(doc))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		data = converted
	}

	// Shape check first so a missing field is reported as such rather than
	// as a decode error further down.
	var shape envelopeShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	switch {
	case shape.Template == nil:
		return nil, fmt.Errorf("%w: missing template", ErrInvalidTemplate)
	case shape.Template.Name == nil || strings.TrimSpace(*shape.Template.Name) == "":
		return nil, fmt.Errorf("%w: missing template name", ErrInvalidTemplate)
	case shape.Template.Sections == nil:
		return nil, fmt.Errorf("%w: missing sections", ErrInvalidTemplate)
	}

	var env model.TemplateExport
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if env.Version != "" && env.Version != model.TemplateExportVersion {
		slog.Warn("importing template from a different export version", "version", env.Version)
	}
	return &env, nil
}

type envelopeShape struct {
	Template *struct {
		Name     *string           `json:"name"`
		Sections []json.RawMessage `json:"sections"`
	} `json:"template"`
}

// stringKeys turns the map[any]any nodes yaml produces for non-string keys
// (a rating scale of 1 to 4, say) into JSON-encodable maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = stringKeys(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	}
	return v
}

// ExportFileName is the download name for a template: every character
// outside a-z, A-Z and 0-9 becomes an underscore.
func ExportFileName(tmpl *model.Template) string {
	var sb strings.Builder
	for _, r := range tmpl.Name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String() + "_template.json"
}

// Hash identifies an import file by content so re-importing it can be
// detected.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
