// Package vuln implements the heuristic vulnerability scanner: a
// depth-first walk of a parsed JSON request body that runs a set of
// independently toggleable detectors against every string leaf and
// object key, producing Findings.
//
//	scanner := vuln.NewScanner(vuln.Config{
//	    SQLi: true, XSS: true, SSRFInternal: true, PathTraversal: true,
//	    PrototypePollution: true,
//	})
//	findings := scanner.Scan(ctx.Body.JSONOrdered)
//
// Detectors never short-circuit one another: every enabled family
// inspects every applicable node. Traversal order is stable, depth-first,
// and visits object keys in declaration order — so Finding order (and
// therefore which hit a Decision picks as its trigger when several share
// the same severity) is deterministic and matches the order the caller
// wrote the document in. That guarantee depends on Scan seeing an
// order-preserving value: pass reqctx's Body.JSONOrdered (an *OrderedMap
// tree), not Body.JSON (a plain map[string]any, whose keys Scan can only
// fall back to visiting alphabetically).
package vuln
