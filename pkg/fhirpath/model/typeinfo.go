// Package model defines the Type System & ModelProvider contract (spec
// §4.2, §3.3): the closed set of TypeInfo descriptors, the ModelProvider
// interface the evaluator and analyzer consult for schema truth, and a
// concrete R4-shaped provider plus a programmatic mock for tests.
package model

import "fmt"

// Namespace distinguishes the two type namespaces spec §3.3 describes.
type Namespace string

const (
	NamespaceSystem Namespace = "System"
	NamespaceFHIR   Namespace = "FHIR"
	NamespaceMeta   Namespace = "" // Any, Collection, Optional, Resource, Union, SimpleType
)

// Kind discriminates the meta shapes of TypeInfo beyond a plain named type.
type Kind int

const (
	KindSimple Kind = iota
	KindAny
	KindCollection
	KindOptional
	KindResource
	KindUnion
)

// TypeInfo is the minimal closed descriptor for static reasoning, per
// spec §3.3. It is value-typed and cheaply cloned; identity is by Name plus
// Namespace for KindSimple/KindResource, or by structural shape otherwise.
type TypeInfo struct {
	Kind      Kind
	Namespace Namespace
	Name      string
	// Inner is used by KindCollection/KindOptional.
	Inner *TypeInfo
	// Members is used by KindUnion (the declared choice-type variants).
	Members []TypeInfo
}

func Simple(namespace Namespace, name string) TypeInfo {
	return TypeInfo{Kind: KindSimple, Namespace: namespace, Name: name}
}

func Resource(name string) TypeInfo {
	return TypeInfo{Kind: KindResource, Namespace: NamespaceFHIR, Name: name}
}

func Any() TypeInfo { return TypeInfo{Kind: KindAny, Name: "Any"} }

func Collection(inner TypeInfo) TypeInfo {
	return TypeInfo{Kind: KindCollection, Inner: &inner}
}

func Optional(inner TypeInfo) TypeInfo {
	return TypeInfo{Kind: KindOptional, Inner: &inner}
}

func Union(members ...TypeInfo) TypeInfo {
	return TypeInfo{Kind: KindUnion, Members: members}
}

func (t TypeInfo) String() string {
	switch t.Kind {
	case KindAny:
		return "Any"
	case KindCollection:
		return fmt.Sprintf("Collection(%s)", t.Inner.String())
	case KindOptional:
		return fmt.Sprintf("Optional(%s)", t.Inner.String())
	case KindUnion:
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = m.String()
		}
		return fmt.Sprintf("Union%v", names)
	default:
		if t.Namespace == "" {
			return t.Name
		}
		return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
	}
}

// Equal reports nominal equality (name + namespace for simple/resource
// types; structural for meta kinds).
func (t TypeInfo) Equal(o TypeInfo) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindAny:
		return true
	case KindCollection, KindOptional:
		if t.Inner == nil || o.Inner == nil {
			return t.Inner == o.Inner
		}
		return t.Inner.Equal(*o.Inner)
	case KindUnion:
		if len(t.Members) != len(o.Members) {
			return false
		}
		for i := range t.Members {
			if !t.Members[i].Equal(o.Members[i]) {
				return false
			}
		}
		return true
	default:
		return t.Namespace == o.Namespace && t.Name == o.Name
	}
}

// System primitive TypeInfo constants, per spec §3.3.
var (
	TypeBoolean  = Simple(NamespaceSystem, "Boolean")
	TypeInteger  = Simple(NamespaceSystem, "Integer")
	TypeDecimal  = Simple(NamespaceSystem, "Decimal")
	TypeString   = Simple(NamespaceSystem, "String")
	TypeDate     = Simple(NamespaceSystem, "Date")
	TypeDateTime = Simple(NamespaceSystem, "DateTime")
	TypeTime     = Simple(NamespaceSystem, "Time")
	TypeQuantity = Simple(NamespaceSystem, "Quantity")
)
