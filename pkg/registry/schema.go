package registry

import (
	"fmt"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
)

// buildSchema compiles a spec's parameter list into an object schema.
func buildSchema(spec domain.ToolSpec) (*openapi3.Schema, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	switch spec.Risk {
	case domain.RiskSafe, domain.RiskSensitive:
	default:
		return nil, fmt.Errorf("unknown risk class %q", spec.Risk)
	}

	schema := openapi3.NewObjectSchema()
	var required []string
	seen := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter without name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true

		prop, err := paramSchema(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		prop.Description = p.Description
		schema.WithProperty(p.Name, prop)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		schema.WithRequired(required)
	}
	return schema, nil
}

func paramSchema(t domain.ParamType) (*openapi3.Schema, error) {
	switch t {
	case domain.ParamString, "":
		return openapi3.NewStringSchema(), nil
	case domain.ParamInteger:
		return openapi3.NewIntegerSchema(), nil
	case domain.ParamNumber:
		return &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeNumber}}, nil
	case domain.ParamBoolean:
		return openapi3.NewBoolSchema(), nil
	case domain.ParamObject:
		return openapi3.NewObjectSchema(), nil
	case domain.ParamArray:
		return openapi3.NewArraySchema(), nil
	}
	return nil, fmt.Errorf("unknown type %q", t)
}
