package vuln

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderedObject is a minimal orderedObject for testing declaration-
// order traversal without depending on reqctx's decoder.
type fakeOrderedObject struct {
	keys   []string
	values map[string]any
}

func (f *fakeOrderedObject) OrderedKeys() []string { return f.keys }
func (f *fakeOrderedObject) Value(key string) any  { return f.values[key] }

func TestScan_OrderedObjectTraversalFollowsDeclarationOrder(t *testing.T) {
	// Two equally severe SQLi hits; alphabetical order would visit
	// "alpha" first, but declaration order puts "zulu" first.
	obj := &fakeOrderedObject{
		keys: []string{"zulu", "alpha"},
		values: map[string]any{
			"zulu":  "1 UNION SELECT * FROM users",
			"alpha": "1 UNION SELECT * FROM accounts",
		},
	}

	s := NewScanner(DefaultConfig())
	findings := s.Scan(obj)

	require.Len(t, findings, 2)
	assert.Equal(t, "/zulu", findings[0].Path)
	assert.Equal(t, "/alpha", findings[1].Path)
}

func TestScan_SQLi(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"query": "1 UNION SELECT * FROM users"})
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.sqli", findings[0].ID)
	assert.Equal(t, High, findings[0].Severity)
	assert.Equal(t, "/query", findings[0].Path)
}

func TestScan_PrototypePollution(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"__proto__": map[string]any{"admin": true}})
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.proto_pollution", findings[0].ID)
	assert.Equal(t, Critical, findings[0].Severity)
	assert.Equal(t, "/__proto__", findings[0].Path)
}

func TestScan_NoSQLInjection_OptIn(t *testing.T) {
	body := map[string]any{"password": map[string]any{"$ne": ""}}

	cfg := DefaultConfig()
	assert.Empty(t, NewScanner(cfg).Scan(body), "off by default")

	cfg.NoSQLInjection = true
	findings := NewScanner(cfg).Scan(body)
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.nosql", findings[0].ID)
}

func TestScan_SSRF_PrivateAddress(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"callback": "http://169.254.169.254/latest/meta-data/"})
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.ssrf", findings[0].ID)
	assert.Equal(t, Critical, findings[0].Severity)
}

func TestScan_SSRF_PublicAddressNotFlagged(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"callback": "https://example.com/webhook"})
	assert.Empty(t, findings)
}

func TestScan_PathTraversal(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"file": "../../etc/passwd"})
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.path_traversal", findings[0].ID)
}

func TestScan_CommandInjection_OptIn(t *testing.T) {
	body := map[string]any{"name": "x; rm -rf /"}

	cfg := DefaultConfig()
	assert.Empty(t, NewScanner(cfg).Scan(body))

	cfg.CommandInjection = true
	findings := NewScanner(cfg).Scan(body)
	require.Len(t, findings, 1)
	assert.Equal(t, Critical, findings[0].Severity)
}

func TestScan_XSS(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"comment": "<script>alert(1)</script>"})
	require.Len(t, findings, 1)
	assert.Equal(t, "vuln.xss", findings[0].ID)
}

func TestScan_NumericBooleanNullLeavesNotScanned(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{"count": 5, "active": true, "deleted": nil})
	assert.Empty(t, findings)
}

func TestScan_DetectorsDoNotShortCircuitEachOther(t *testing.T) {
	s := NewScanner(DefaultConfig())
	// a value matching both SQLi and XSS should yield both findings.
	findings := s.Scan(map[string]any{"q": "<script>UNION SELECT 1</script>"})
	ids := map[string]bool{}
	for _, f := range findings {
		ids[f.ID] = true
	}
	assert.True(t, ids["vuln.sqli"])
	assert.True(t, ids["vuln.xss"])
}

func TestScan_NestedArrayPaths(t *testing.T) {
	s := NewScanner(DefaultConfig())
	findings := s.Scan(map[string]any{
		"items": []any{
			map[string]any{"name": "ok"},
			map[string]any{"name": "1 UNION SELECT password FROM users"},
		},
	})
	require.Len(t, findings, 1)
	assert.Equal(t, "/items/1/name", findings[0].Path)
}

func TestScan_ValueTruncatedTo100Chars(t *testing.T) {
	s := NewScanner(DefaultConfig())
	long := "' OR '1'='1" + stringOfLength(200)
	findings := s.Scan(map[string]any{"q": long})
	require.NotEmpty(t, findings)
	assert.LessOrEqual(t, len(findings[0].Value), 100)
}

func stringOfLength(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
