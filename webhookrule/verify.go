package webhookrule

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Provider identifies a webhook signing convention.
type Provider string

const (
	ProviderGitHub       Provider = "github"
	ProviderStripe       Provider = "stripe"
	ProviderSlack        Provider = "slack"
	ProviderGenericHMAC  Provider = "generic-hmac"
)

var (
	ErrUnknownProvider    = errors.New("webhookrule: unknown provider")
	ErrMissingSecret      = errors.New("webhookrule: no secret configured")
	ErrSignatureHeader    = errors.New("webhookrule: signature header missing or malformed")
	ErrSignatureMismatch  = errors.New("webhookrule: signature does not match")
	ErrTimestampOutOfTolerance = errors.New("webhookrule: timestamp outside tolerance window")
)

// Config configures one Verifier.
type Config struct {
	Provider Provider
	Secret   string
	// TimestampTolerance bounds how old a Stripe/Slack signed timestamp
	// may be; zero disables the check.
	TimestampTolerance time.Duration
	// HeaderName is required for ProviderGenericHMAC; ignored otherwise.
	HeaderName string
}

// Verifier checks one provider's HMAC signature over a raw request body.
type Verifier struct {
	cfg Config
	now func() time.Time
}

// NewVerifier returns a Verifier for cfg.Provider.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	switch cfg.Provider {
	case ProviderGitHub, ProviderStripe, ProviderSlack:
	case ProviderGenericHMAC:
		if cfg.HeaderName == "" {
			return nil, fmt.Errorf("%w: generic-hmac requires HeaderName", ErrSignatureHeader)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return &Verifier{cfg: cfg, now: time.Now}, nil
}

// Verify checks body against the signature headers found in headers (a
// case-insensitive lower-cased map, matching reqctx.Context.Headers).
func (v *Verifier) Verify(headers map[string]string, body []byte) error {
	switch v.cfg.Provider {
	case ProviderGitHub:
		return v.verifyGitHub(headers, body)
	case ProviderStripe:
		return v.verifyStripe(headers, body)
	case ProviderSlack:
		return v.verifySlack(headers, body)
	case ProviderGenericHMAC:
		return v.verifyGenericHMAC(headers, body)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, v.cfg.Provider)
	}
}

func (v *Verifier) verifyGitHub(headers map[string]string, body []byte) error {
	header := headers["x-hub-signature-256"]
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return ErrSignatureHeader
	}
	expected, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureHeader, err)
	}
	mac := hmacSHA256(v.cfg.Secret, body)
	if !hmac.Equal(mac, expected) {
		return ErrSignatureMismatch
	}
	return nil
}

func (v *Verifier) verifyStripe(headers map[string]string, body []byte) error {
	header := headers["stripe-signature"]
	if header == "" {
		return ErrSignatureHeader
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrSignatureHeader
	}

	if err := v.checkTimestamp(timestamp); err != nil {
		return err
	}

	signedPayload := timestamp + "." + string(body)
	mac := hmacSHA256(v.cfg.Secret, []byte(signedPayload))
	expectedHex := hex.EncodeToString(mac)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedHex)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func (v *Verifier) verifySlack(headers map[string]string, body []byte) error {
	timestamp := headers["x-slack-request-timestamp"]
	header := headers["x-slack-signature"]
	if timestamp == "" || header == "" {
		return ErrSignatureHeader
	}
	if err := v.checkTimestamp(timestamp); err != nil {
		return err
	}

	const prefix = "v0="
	if !strings.HasPrefix(header, prefix) {
		return ErrSignatureHeader
	}
	expected, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureHeader, err)
	}

	basestring := "v0:" + timestamp + ":" + string(body)
	mac := hmacSHA256(v.cfg.Secret, []byte(basestring))
	if !hmac.Equal(mac, expected) {
		return ErrSignatureMismatch
	}
	return nil
}

func (v *Verifier) verifyGenericHMAC(headers map[string]string, body []byte) error {
	header := headers[strings.ToLower(v.cfg.HeaderName)]
	if header == "" {
		return ErrSignatureHeader
	}
	mac := hmacSHA256(v.cfg.Secret, body)

	if expected, err := hex.DecodeString(header); err == nil {
		if hmac.Equal(mac, expected) {
			return nil
		}
	}
	if expected, err := base64.StdEncoding.DecodeString(header); err == nil {
		if hmac.Equal(mac, expected) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func (v *Verifier) checkTimestamp(raw string) error {
	if v.cfg.TimestampTolerance <= 0 {
		return nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureHeader, err)
	}
	signed := time.Unix(sec, 0)
	age := v.now().Sub(signed)
	if age < 0 {
		age = -age
	}
	if age > v.cfg.TimestampTolerance {
		return ErrTimestampOutOfTolerance
	}
	return nil
}

func hmacSHA256(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
