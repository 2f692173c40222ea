// pkg/hestia_io/files.go

package hestia_io

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// ReadStructuredFile decodes a JSON or YAML document at path into out.
// Documents starting with '{' or '[' are read as JSON, anything else as YAML,
// so out needs both json and yaml struct tags when it is a struct.
func ReadStructuredFile(ctx context.Context, path string, out any) error {
	logger := otelzap.Ctx(ctx)
	logger.Debug("📖 Reading file", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("❌ Failed to read file", zap.String("path", path), zap.Error(err))
		return hestia_err.WrapOptionsError(err, "Could not open json file %q", path)
	}

	if err := decode(data, out); err != nil {
		logger.Error("❌ Failed to parse file", zap.String("path", path), zap.Error(err))
		return hestia_err.WrapOptionsError(err, "The json file %q contains malformed json", path)
	}

	logger.Debug("✅ File read successfully", zap.String("path", path))
	return nil
}

// ToUTF8 converts text saved with a UTF-8 or UTF-16 byte order mark, as
// PowerShell and Notepad write it, to plain UTF-8. Text without a mark is
// taken as UTF-8.
func ToUTF8(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	return out, err
}

func decode(data []byte, out any) error {
	text, err := ToUTF8(data)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		return dec.Decode(out)
	}
	return yaml.Unmarshal(trimmed, out)
}
