package domain

import "time"

// RiskClass is static metadata declared by a capability.
type RiskClass string

const (
	RiskSafe      RiskClass = "safe"
	RiskSensitive RiskClass = "sensitive"
)

// ParamType names the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

// ParamSpec describes one parameter of a tool's contract.
type ParamSpec struct {
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	Type        ParamType `json:"type" yaml:"type" mapstructure:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// ToolSpec is the declared metadata of a capability.
// It is used for prompt generation, parameter validation and guardrail classification.
type ToolSpec struct {
	Name        string        `json:"name" yaml:"name" mapstructure:"name"`
	Description string        `json:"description" yaml:"description" mapstructure:"description"`
	Risk        RiskClass     `json:"risk" yaml:"risk" mapstructure:"risk"`
	Params      []ParamSpec   `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}
