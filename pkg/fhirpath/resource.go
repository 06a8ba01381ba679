package fhirpath

import (
	"encoding/json"
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Resource is any FHIR resource that can be marshaled to JSON and
// evaluated against.
type Resource interface {
	GetResourceType() string
}

// EvaluateResource marshals resource to JSON and evaluates expr against it.
func EvaluateResource(resource Resource, expr string) (Collection, error) {
	data, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return Evaluate(data, expr)
}

// EvaluateResourceCached is like EvaluateResource but goes through
// DefaultCache.
func EvaluateResourceCached(resource Resource, expr string) (Collection, error) {
	data, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return EvaluateCached(data, expr)
}

// ResourceJSON pairs a Go resource with its pre-serialized JSON, so
// repeated evaluation against the same resource skips re-marshaling.
type ResourceJSON struct {
	resource Resource
	json     []byte
}

// NewResourceJSON marshals resource once and wraps the result.
func NewResourceJSON(resource Resource) (*ResourceJSON, error) {
	data, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &ResourceJSON{resource: resource, json: data}, nil
}

// MustNewResourceJSON is like NewResourceJSON but panics on error.
func MustNewResourceJSON(resource Resource) *ResourceJSON {
	rj, err := NewResourceJSON(resource)
	if err != nil {
		panic(err)
	}
	return rj
}

func (r *ResourceJSON) Evaluate(expr string) (Collection, error) {
	return Evaluate(r.json, expr)
}

func (r *ResourceJSON) EvaluateCached(expr string) (Collection, error) {
	return EvaluateCached(r.json, expr)
}

func (r *ResourceJSON) JSON() []byte { return r.json }

func (r *ResourceJSON) Resource() Resource { return r.resource }

// EvaluateToBoolean evaluates expr and coerces a single Boolean result;
// an empty result is treated as false.
func EvaluateToBoolean(resource []byte, expr string) (bool, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return false, err
	}
	if result.Empty() {
		return false, nil
	}
	if len(result) != 1 {
		return false, fmt.Errorf("expected a single value, got %d", len(result))
	}
	b, ok := result[0].(types.Boolean)
	if !ok {
		return false, fmt.Errorf("expected Boolean, got %s", result[0].Type())
	}
	return b.Bool(), nil
}

// EvaluateToString evaluates expr and renders a single result as a string.
func EvaluateToString(resource []byte, expr string) (string, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return "", err
	}
	if result.Empty() {
		return "", nil
	}
	if len(result) != 1 {
		return "", fmt.Errorf("expected a single value, got %d", len(result))
	}
	if s, ok := result[0].(types.String); ok {
		return s.Value(), nil
	}
	return result[0].String(), nil
}

// EvaluateToStrings evaluates expr and renders every result as a string.
func EvaluateToStrings(resource []byte, expr string) ([]string, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(result))
	for i, v := range result {
		if s, ok := v.(types.String); ok {
			out[i] = s.Value()
		} else {
			out[i] = v.String()
		}
	}
	return out, nil
}

// Exists reports whether expr yields any result against resource.
func Exists(resource []byte, expr string) (bool, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return false, err
	}
	return !result.Empty(), nil
}

// Count returns the number of results expr yields against resource.
func Count(resource []byte, expr string) (int, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}
