// Package schema validates parsed JSON values against a JSON Schema
// Draft 2020-12 document, built on
// github.com/santhosh-tekuri/jsonschema/v6. It adds the three custom
// formats the gateway's contracts rely on (uuid, date-time, email) and an
// optional reject-unknown-fields pass that the base library doesn't do on
// its own.
//
//	v, err := schema.Compile(requestSchemaDict, components)
//	if err != nil {
//	    // malformed schema or unresolved $ref — a construction-time error
//	}
//	violations := v.Validate(body, schema.Options{RejectUnknownFields: true})
//
// Validate never stops at the first failure: every violation in the
// document is collected and returned.
package schema
