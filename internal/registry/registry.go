package registry

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wonny/finsight/internal/contracts"
)

// Input declares one named formula input and the ordered concept
// candidates that can satisfy it (preferred first)
type Input struct {
	Concepts []string `yaml:"concepts"`
}

// Metric declares one calculable metric: a formula over input names and
// an output type controlling result formatting
type Metric struct {
	Expr        string               `yaml:"expr"`
	Output      contracts.OutputType `yaml:"output"`
	Description string               `yaml:"description,omitempty"`
}

// Registry is the declarative metric catalog. Formulas, input concept
// mappings, and per-company overrides all live in YAML; adding a metric
// must not require a code change.
// ⭐ SSOT: 지표 정의는 YAML에서만
type Registry struct {
	Inputs  map[string]Input  `yaml:"inputs"`
	Metrics map[string]Metric `yaml:"metrics"`

	// Overrides remaps input concepts for companies with non-standard
	// taxonomies: CIK → input name → concept candidates
	Overrides map[string]map[string][]string `yaml:"overrides,omitempty"`
}

// ValidationError 검증 실패 (로드 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a YAML registry file
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	if err := Validate(&reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks registry structure constraints
func Validate(reg *Registry) error {
	if len(reg.Inputs) == 0 {
		return ValidationError{"inputs", "required"}
	}
	if len(reg.Metrics) == 0 {
		return ValidationError{"metrics", "required"}
	}

	for name, input := range reg.Inputs {
		if len(input.Concepts) == 0 {
			return ValidationError{fmt.Sprintf("inputs.%s.concepts", name), "must not be empty"}
		}
	}

	for name, metric := range reg.Metrics {
		if metric.Expr == "" {
			return ValidationError{fmt.Sprintf("metrics.%s.expr", name), "required"}
		}
		switch metric.Output {
		case contracts.OutputValue, contracts.OutputPercent, contracts.OutputRatio, contracts.OutputDays:
		default:
			return ValidationError{
				Field:   fmt.Sprintf("metrics.%s.output", name),
				Message: fmt.Sprintf("unknown output type %q", metric.Output),
			}
		}
	}

	for cik, inputs := range reg.Overrides {
		for name, concepts := range inputs {
			if _, ok := reg.Inputs[name]; !ok {
				return ValidationError{
					Field:   fmt.Sprintf("overrides.%s.%s", cik, name),
					Message: "references unknown input",
				}
			}
			if len(concepts) == 0 {
				return ValidationError{
					Field:   fmt.Sprintf("overrides.%s.%s", cik, name),
					Message: "must not be empty",
				}
			}
		}
	}

	return nil
}

// GetMetric returns a metric definition. Unknown names are a caller
// error, not an internal failure.
func (r *Registry) GetMetric(name string) (*Metric, error) {
	m, ok := r.Metrics[name]
	if !ok {
		return nil, contracts.NewValidationError("unknown metric %q", name)
	}
	return &m, nil
}

// HasInput reports whether a name is a declared input
func (r *Registry) HasInput(name string) bool {
	_, ok := r.Inputs[name]
	return ok
}

// ConceptsFor returns the concept candidates for an input, applying the
// per-company override when one exists
func (r *Registry) ConceptsFor(input, cik string) ([]string, error) {
	if cik != "" {
		if company, ok := r.Overrides[cik]; ok {
			if concepts, ok := company[input]; ok {
				return concepts, nil
			}
		}
	}

	in, ok := r.Inputs[input]
	if !ok {
		return nil, contracts.NewValidationError("unknown input %q", input)
	}
	return in.Concepts, nil
}

// MetricNames returns all metric names, sorted
func (r *Registry) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for name := range r.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
