package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
)

// ignorePos drops every ast.Pos field from a cmp.Diff: source offsets are
// incidental to these structural-shape assertions.
var ignorePos = cmpopts.IgnoreTypes(ast.Pos{})

func TestParseSimplePath(t *testing.T) {
	node, err := Parse("Patient.name.given")
	require.NoError(t, err)
	outer, ok := node.(ast.Path)
	require.True(t, ok, "expected ast.Path at the root, got %T", node)
	seg, ok := outer.Segment.(ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "given", seg.Name)
}

func TestParseMethodCallWithArgs(t *testing.T) {
	node, err := Parse("name.where(use = 'official')")
	require.NoError(t, err)
	mc, ok := node.(ast.MethodCall)
	require.True(t, ok, "expected ast.MethodCall, got %T", node)
	assert.Equal(t, "where", mc.Name)
	require.Len(t, mc.Args, 1)
	cond, ok := mc.Args[0].(ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "=", cond.Op)
}

func TestParseImpliesIsRightAssociative(t *testing.T) {
	node, err := Parse("a implies b implies c")
	require.NoError(t, err)
	top, ok := node.(ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "implies", top.Op)
	_, ok = top.RHS.(ast.BinaryOp)
	assert.True(t, ok, "expected the right operand to itself be 'b implies c', got %+v", top.RHS)
	_, ok = top.LHS.(ast.Identifier)
	assert.True(t, ok, "expected the left operand to be the bare identifier 'a', got %+v", top.LHS)
}

func TestParseUnaryMinusAndNot(t *testing.T) {
	node, err := Parse("-5")
	require.NoError(t, err)
	u, ok := node.(ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.UnaryMinus, u.Op)

	node, err = Parse("not true")
	require.NoError(t, err)
	u, ok = node.(ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.UnaryNot, u.Op)
}

func TestParseTypeCheckAndCast(t *testing.T) {
	node, err := Parse("value is Quantity")
	require.NoError(t, err)
	tc, ok := node.(ast.TypeCheck)
	require.True(t, ok)
	assert.Equal(t, "Quantity", tc.TypeName)

	node, err = Parse("value as FHIR.Quantity")
	require.NoError(t, err)
	tcast, ok := node.(ast.TypeCast)
	require.True(t, ok)
	assert.Equal(t, "FHIR.Quantity", tcast.TypeName)
}

func TestParseQuantityLiteral(t *testing.T) {
	node, err := Parse("4 'mg'")
	require.NoError(t, err)
	lit, ok := node.(ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LitQuantity, lit.Kind)
	assert.Equal(t, "mg", lit.Unit)
}

func TestParseIndexExpression(t *testing.T) {
	node, err := Parse("name[0]")
	require.NoError(t, err)
	idx, ok := node.(ast.Index)
	require.True(t, ok)
	lit, ok := idx.Index.(ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Text)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("Patient.name )")
	assert.Error(t, err)
}

func TestParseRejectsDoubleDot(t *testing.T) {
	_, err := Parse("Patient..name")
	assert.Error(t, err)
}

func TestParseProducesExpectedTreeShape(t *testing.T) {
	node, err := Parse("Patient.name.where(use = 'official').given")
	require.NoError(t, err)

	want := ast.Path{
		Base: ast.MethodCall{
			Receiver: ast.Path{
				Base:    ast.Identifier{Name: "Patient"},
				Segment: ast.Identifier{Name: "name"},
			},
			Name: "where",
			Args: []ast.Node{
				ast.BinaryOp{
					Op:  "=",
					LHS: ast.Identifier{Name: "use"},
					RHS: ast.Literal{Kind: ast.LitString, Str: "official"},
				},
			},
		},
		Segment: ast.Identifier{Name: "given"},
	}

	if diff := cmp.Diff(want, node, ignorePos); diff != "" {
		t.Errorf("unexpected AST shape (-want +got):\n%s", diff)
	}
}
