// Package muxhandlers provides HTTP middleware handlers for the mux router.
//
// gatekeeper's proxy router uses five of these to build the handler chain
// that wraps the gateway: recovery, request ID, security headers,
// compression, and request size limiting.
//
// # Recovery Middleware
//
// RecoveryMiddleware recovers from panics in downstream handlers, returns
// 500 Internal Server Error to the client, and optionally invokes a custom
// log function with the request and recovered value.
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
//	    LogFunc: func(r *http.Request, err any) {
//	        log.Printf("panic: %v %s", err, r.URL.Path)
//	    },
//	}))
//
// # Request ID Middleware
//
// RequestIDMiddleware generates or propagates a unique request identifier.
// The ID is set on the request header, the response header, and the request
// context. Downstream handlers can retrieve it with RequestIDFromContext.
// By default it generates UUID v4 values using github.com/google/uuid.
// Use GenerateUUIDv7 for time-ordered IDs (RFC 9562). The GenerateFunc
// receives the current request, allowing ID generation based on request
// context.
//
//	r.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{
//	    TrustIncoming: true,
//	}))
//
// Time-ordered UUID v7:
//
//	r.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{
//	    GenerateFunc: muxhandlers.GenerateUUIDv7,
//	}))
//
// # Request Size Limit Middleware
//
// RequestSizeLimitMiddleware rejects request bodies that exceed a maximum
// size. It wraps r.Body with http.MaxBytesReader, so reading past the limit
// fails with an *http.MaxBytesError; the handler that reads the body chooses
// the response status. gatekeeper applies this ahead of the gateway, so the
// gateway's own body read stops with that error once the limit is passed.
//
//	mw, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
//	    MaxBytes: 1 << 20, // 1 MiB
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
//
// # Compression Middleware
//
// CompressionMiddleware compresses response bodies using gzip or deflate when
// the client advertises support via the Accept-Encoding header. Gzip is
// preferred over deflate when both are accepted with equal quality; a higher
// q-value for deflate selects deflate. It uses sync.Pool instances
// to reuse writers for performance. Compression is skipped for inherently
// compressed content types (images, video, audio, archives).
//
//	mw, err := muxhandlers.CompressionMiddleware(muxhandlers.CompressionConfig{
//	    Level:     gzip.BestSpeed,
//	    MinLength: 1024,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
//
// # Security Headers Middleware
//
// SecurityHeadersMiddleware sets common security response headers with
// sensible defaults. Headers are set before calling the next handler.
// By default it sets X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
// and Referrer-Policy: strict-origin-when-cross-origin. HSTS, CSP,
// Permissions-Policy, and Cross-Origin-Opener-Policy headers are opt-in.
//
//	mw, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
//	    HSTSMaxAge:            63072000,
//	    HSTSIncludeSubDomains: true,
//	    HSTSPreload:           true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
package muxhandlers
