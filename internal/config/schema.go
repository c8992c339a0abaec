package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	portsideschema "github.com/portside/portside/schema"
)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func manifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("portside.v1.json", bytes.NewReader(portsideschema.PortsideV1Schema)); err != nil {
			schemaErr = fmt.Errorf("add manifest schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("portside.v1.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile manifest schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

func validateAgainstSchema(doc map[string]any) error {
	schema, err := manifestSchema()
	if err != nil {
		return err
	}

	normalized, err := normalizeForSchema(doc)
	if err != nil {
		return fmt.Errorf("prepare manifest for validation: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		var vErr *jsonschema.ValidationError
		if errors.As(err, &vErr) {
			return fmt.Errorf("invalid manifest:\n%s", strings.Join(schemaIssues(vErr), "\n"))
		}
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// normalizeForSchema round-trips the YAML document through JSON so the
// validator sees json.Number values instead of Go ints and floats.
func normalizeForSchema(doc map[string]any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// schemaIssues flattens the validator's cause tree into one line per
// offending manifest key. Connective "doesn't validate with" nodes carry
// no information of their own and are skipped.
func schemaIssues(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		return []string{fmt.Sprintf("  %s: %s", manifestKey(err.InstanceLocation), err.Message)}
	}
	var issues []string
	if !strings.HasPrefix(err.Message, "doesn't validate with") {
		issues = append(issues, fmt.Sprintf("  %s: %s", manifestKey(err.InstanceLocation), err.Message))
	}
	for _, cause := range err.Causes {
		issues = append(issues, schemaIssues(cause)...)
	}
	return issues
}

// manifestKey renders a JSON pointer as the dotted manifest key it names.
// Elements of the workspaces and wellKnownPorts lists render as key[i].
// The root pointer reads as "manifest".
func manifestKey(ptr string) string {
	var b strings.Builder
	for _, segment := range strings.Split(ptr, "/") {
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(segment); err == nil && b.Len() > 0 {
			fmt.Fprintf(&b, "[%s]", segment)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(segment)
	}
	if b.Len() == 0 {
		return "manifest"
	}
	return b.String()
}
