package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

var (
	listSchemaOnce sync.Once
	listSchema     *jsonschema.Schema
	listSchemaErr  error
)

// CompileSchema compiles a JSON schema given as a map.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates "data" against "schema".
func ValidateJSONAgainstSchema(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateRecordsJSON checks a JSON array of records against ktp.RecordListSchema.
func ValidateRecordsJSON(data []byte) error {
	listSchemaOnce.Do(func() {
		listSchema, listSchemaErr = CompileSchema(ktp.RecordListSchema())
	})
	if listSchemaErr != nil {
		return listSchemaErr
	}
	return ValidateJSONAgainstSchema(listSchema, data)
}

// WriteJSON writes records as an indented JSON array keyed by field name.
// Nothing is written if the output does not match the record schema.
func WriteJSON(w io.Writer, records []ktp.Record) error {
	if records == nil {
		records = []ktp.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := ValidateRecordsJSON(data); err != nil {
		return common.NewAppError(common.CodeExport, "records failed schema validation", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// SaveJSON writes records to path, replacing any earlier file.
func SaveJSON(path string, records []ktp.Record) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, records); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.NewAppError(common.CodeExport, "create json dir", err)
		}
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return common.NewAppError(common.CodeExport, "save json", err)
	}
	return nil
}
