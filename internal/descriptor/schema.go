package descriptor

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func descriptorSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("descriptor.json", doc); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("descriptor.json")
	})
	return compiledSchema, schemaErr
}

// Validate checks a raw descriptor document against the descriptor schema.
// The returned error lists every violation with its location.
func Validate(source string, doc map[string]any) error {
	sch, err := descriptorSchema()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDescriptorSchema, "descriptor schema is invalid", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDescriptorSchema, fmt.Sprintf("descriptor %s is not representable as JSON", source), err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodeDescriptorSchema, fmt.Sprintf("descriptor %s is not representable as JSON", source), err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errors.Wrap(errors.ErrCodeDescriptorSchema, fmt.Sprintf("invalid descriptor %s", source), err)
	}

	var problems []string
	for _, cause := range flattenValidationErrors(ve) {
		location := "/" + strings.Join(cause.InstanceLocation, "/")
		problems = append(problems, fmt.Sprintf("%s: %v", location, cause.ErrorKind))
	}
	return errors.Newf(errors.ErrCodeDescriptorSchema, "invalid descriptor %s:\n  %s", source, strings.Join(problems, "\n  ")).
		WithSuggestion("Check field names and value types of the reported entries")
}

func flattenValidationErrors(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
