package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCtx() map[string]any {
	return map[string]any{
		"identity": map[string]any{
			"authenticated": true,
			"tenant":        "acme",
			"subject":       "user-1",
		},
		"request": map[string]any{
			"method": "POST",
			"body": map[string]any{
				"json": map[string]any{
					"tenantId": "acme",
					"amount":   150,
					"tags":     []any{"a", "b"},
				},
			},
		},
	}
}

func TestSafe_AuthCheck(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate("identity.authenticated == true", sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_TenantBinding(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate("identity.tenant == request.body.json.tenantId", sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_SubjectBindingMismatch(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate("identity.subject == request.body.json.tenantId", sampleCtx())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSafe_Equality(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`request.method == "POST"`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_Inequality(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`request.method != "GET"`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_ScalarMembership(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`identity.tenant in ["acme", "globex"]`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_SizeCheck(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`size(request.body.json.tags) <= 5`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_NumericComparison(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`request.body.json.amount > 100`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Evaluate(`request.body.json.amount < 100`, sampleCtx())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSafe_AndShortCircuits(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`identity.authenticated == true && request.body.json.amount > 100`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_Or(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`request.body.json.amount < 10 || request.body.json.amount > 100`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_UnsupportedExpressionReturnsError(t *testing.T) {
	s := NewSafe()
	_, err := s.Evaluate(`request.body.tags contains "a"`, sampleCtx())
	require.ErrorIs(t, err, ErrUnsupportedExpression)
}

func TestSafe_ArrayInListUnsupported(t *testing.T) {
	s := NewSafe()
	// membership only supports scalar literals inside the brackets; a
	// nested array element is not a recognized literal form.
	_, err := s.Evaluate(`request.body.tags in [["a","b"]]`, sampleCtx())
	require.ErrorIs(t, err, ErrUnsupportedExpression)
}

func TestSafe_PathVsPathComparison(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`identity.tenant == identity.tenant`, sampleCtx())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSafe_MissingPathIsNilNotError(t *testing.T) {
	s := NewSafe()
	ok, err := s.Evaluate(`request.body.missing == "x"`, sampleCtx())
	require.NoError(t, err)
	assert.False(t, ok)
}
