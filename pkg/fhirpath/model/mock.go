package model

import (
	"context"

	"github.com/buger/jsonparser"
)

// MockProvider is a programmatically populated ModelProvider for analyzer
// and evaluator unit tests, per the "mock/in-memory" option spec §6.2
// explicitly allows. Registration is not safe to race with lookups; build
// it fully before handing it to an evaluation.
type MockProvider struct {
	types      map[string]TypeInfo
	properties map[string]map[string]TypeInfo
	choices    map[string][]string // parentTypeName -> ordered base property names that are choices
	resources  map[string]bool
	primitives map[string]bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		types:      map[string]TypeInfo{},
		properties: map[string]map[string]TypeInfo{},
		choices:    map[string][]string{},
		resources:  map[string]bool{},
		primitives: map[string]bool{},
	}
}

func (m *MockProvider) RegisterType(t TypeInfo) *MockProvider {
	m.types[t.Name] = t
	if t.Kind == KindResource {
		m.resources[t.Name] = true
	}
	return m
}

func (m *MockProvider) RegisterProperty(parentType, property string, t TypeInfo) *MockProvider {
	if m.properties[parentType] == nil {
		m.properties[parentType] = map[string]TypeInfo{}
	}
	m.properties[parentType][property] = t
	return m
}

func (m *MockProvider) RegisterChoice(parentType, baseProperty string, variants ...TypeInfo) *MockProvider {
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		suffix := v.Name
		names = append(names, baseProperty+suffix)
		m.RegisterProperty(parentType, baseProperty+suffix, v)
	}
	m.choices[parentType] = append(m.choices[parentType], names...)
	return m
}

func (m *MockProvider) RegisterPrimitive(name string) *MockProvider {
	m.primitives[name] = true
	return m
}

func (m *MockProvider) GetType(_ context.Context, name string) (TypeInfo, bool, error) {
	t, ok := m.types[name]
	if ok {
		return t, true, nil
	}
	if sys, ok := systemTypeByLowerName(name); ok {
		return sys, true, nil
	}
	return TypeInfo{}, false, nil
}

func (m *MockProvider) GetPropertyType(_ context.Context, parent TypeInfo, property string) (TypeInfo, bool, error) {
	props, ok := m.properties[parent.Name]
	if !ok {
		return TypeInfo{}, false, nil
	}
	t, ok := props[property]
	return t, ok, nil
}

func (m *MockProvider) ResolveChoice(_ context.Context, parent TypeInfo, baseProperty string, instanceJSON []byte) (ChoiceResolution, bool, error) {
	candidates := m.choices[parent.Name]
	if instanceJSON == nil {
		for _, name := range candidates {
			if len(name) > len(baseProperty) && name[:len(baseProperty)] == baseProperty {
				return ChoiceResolution{PropertyName: name, Type: m.properties[parent.Name][name]}, true, nil
			}
		}
		return ChoiceResolution{}, false, nil
	}
	for _, name := range candidates {
		if len(name) <= len(baseProperty) || name[:len(baseProperty)] != baseProperty {
			continue
		}
		if _, _, _, err := jsonparser.Get(instanceJSON, name); err == nil {
			return ChoiceResolution{PropertyName: name, Type: m.properties[parent.Name][name]}, true, nil
		}
	}
	return ChoiceResolution{}, false, nil
}

func (m *MockProvider) VariantsPresent(_ context.Context, parent TypeInfo, baseProperty string, instanceJSON []byte) ([]ChoiceResolution, error) {
	if instanceJSON == nil {
		return nil, nil
	}
	var present []ChoiceResolution
	for _, name := range m.choices[parent.Name] {
		if len(name) <= len(baseProperty) || name[:len(baseProperty)] != baseProperty {
			continue
		}
		if _, _, _, err := jsonparser.Get(instanceJSON, name); err == nil {
			present = append(present, ChoiceResolution{PropertyName: name, Type: m.properties[parent.Name][name]})
		}
	}
	return present, nil
}

func (m *MockProvider) IsSubtype(_ context.Context, child, parent TypeInfo) (bool, error) {
	return isSubtypeOf(child.Name, parent.Name), nil
}

func (m *MockProvider) IsResource(_ context.Context, name string) bool { return m.resources[name] }

func (m *MockProvider) IsPrimitive(_ context.Context, name string) bool {
	if m.primitives[name] {
		return true
	}
	return isFHIRPrimitiveName(name)
}
