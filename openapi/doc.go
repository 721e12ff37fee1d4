// Package openapi loads and queries OpenAPI 3.x specifications for use by
// the gateway's Schema Validator and Pipeline Driver.
//
// It is a consumption-side package: it parses a caller-supplied spec file
// and resolves local $ref references, compiles a path-template matcher per
// declared path, and exposes per-operation request schemas. It does not
// generate OpenAPI documents from route registrations.
//
// # Loading a spec
//
//	spec, err := openapi.LoadFile("openapi.yaml", openapi.LoaderConfig{ResolveRefs: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Matching a request
//
//	op, pathParams, ok := spec.GetOperation("/users/42", "GET")
//	if ok {
//	    schema := op.RequestSchema()
//	}
//
// Only OpenAPI 3.x documents are accepted; the "openapi" field must begin
// with "3.". Both YAML and JSON input are accepted — JSON is a valid
// subset of YAML 1.2 flow style, so a single parser handles both.
package openapi
