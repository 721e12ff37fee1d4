// Package httpsig implements HTTP Message Signatures per RFC 9421 with
// optional Content-Digest support per RFC 9530.
//
// apisentry uses it for exactly one thing: authenticating calls to the
// gateway's admin endpoint. Everything here exists to serve that — there
// is no client-side signing transport and no algorithm beyond the two the
// admin surface actually accepts.
//
// # Supported Algorithms
//
//   - ed25519 (Edwards-Curve DSA) — the admin endpoint's verifier
//   - hmac-sha256 (HMAC) — available for symmetric-key deployments
//
// # Signing Requests
//
// Use SignRequest to add Signature and Signature-Input headers to an HTTP
// request:
//
//	signer, err := httpsig.NewEd25519Signer("my-key-id", privateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = httpsig.SignRequest(req, httpsig.SignConfig{
//	    Signer:            signer,
//	    CoveredComponents: []string{httpsig.ComponentMethod, httpsig.ComponentAuthority, httpsig.ComponentPath},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Verifying Requests
//
// Use VerifyRequest to verify the signature on an incoming request:
//
//	resolver := func(r *http.Request, keyID string, alg httpsig.Algorithm) (httpsig.Verifier, error) {
//	    // Look up the verifier for the given key ID and algorithm.
//	    return verifier, nil
//	}
//
//	err := httpsig.VerifyRequest(req, httpsig.VerifyConfig{
//	    Resolver:           resolver,
//	    RequiredComponents: []string{httpsig.ComponentMethod, httpsig.ComponentAuthority},
//	    MaxAge:             5 * time.Minute,
//	})
//
// # Server Middleware
//
// Middleware returns a mux.MiddlewareFunc that verifies signatures on
// incoming requests. The gateway's admin router wires this in front of
// its status endpoint:
//
//	mw, err := httpsig.Middleware(httpsig.MiddlewareConfig{
//	    Verify: httpsig.VerifyConfig{
//	        Resolver: resolver,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
//
// # Content-Digest
//
// Optional Content-Digest support (RFC 9530) can be used standalone or
// integrated with signing:
//
//	// Standalone usage:
//	err := httpsig.SetContentDigest(req, httpsig.DigestSHA256)
//
//	// Integrated with signing (adds Content-Digest and includes it
//	// in covered components automatically):
//	err := httpsig.SignRequest(req, httpsig.SignConfig{
//	    Signer:          signer,
//	    DigestAlgorithm: httpsig.DigestSHA256,
//	})
package httpsig
