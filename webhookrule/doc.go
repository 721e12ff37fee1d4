// Package webhookrule verifies inbound webhook deliveries: provider
// HMAC signature checks and replay protection, backing the
// webhook-signature and webhook-replay policy rule types.
//
// Four providers are supported out of the box, each with its own
// signature header and digest convention:
//
//   - github (X-Hub-Signature-256, hex sha256 HMAC over the raw body)
//   - stripe (Stripe-Signature, timestamped v1 HMAC scheme)
//   - slack (X-Slack-Signature, v0 timestamped HMAC scheme)
//   - generic-hmac (a single configurable header, hex or base64 sha256 HMAC)
//
// Verification always happens over the raw, unparsed body bytes —
// providers sign exact bytes, not the re-serialized JSON.
//
//	verifier, err := webhookrule.NewVerifier(webhookrule.Config{
//	    Provider: webhookrule.ProviderGitHub,
//	    Secret:   secret,
//	})
//	err = verifier.Verify(headers, rawBody)
//
// Replay protection is a separate, bounded in-process cache keyed by a
// provider-specific delivery identity:
//
//	guard := webhookrule.NewReplayGuard(1000, 5*time.Minute)
//	if guard.Seen(deliveryKey) {
//	    // reject as a replay
//	}
package webhookrule
