// Command gatekeeper runs the gateway as a standalone reverse proxy: it
// terminates inbound requests, runs them through gateway.Middleware, and
// forwards whatever survives to an upstream origin.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apisentry/apisentry/gateway"
	"github.com/apisentry/apisentry/httpsig"
	"github.com/apisentry/apisentry/mux"
	"github.com/apisentry/apisentry/muxhandlers"
	"github.com/apisentry/apisentry/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr   = flag.String("listen", ":8080", "address to listen on")
		upstream     = flag.String("upstream", "http://localhost:8081", "origin to forward allowed requests to")
		policyPath   = flag.String("policy", "", "path to the policy YAML file")
		openapiPath  = flag.String("openapi", "", "path to the OpenAPI spec (YAML or JSON)")
		mode         = flag.String("mode", "enforce", "fallback enforcement mode: enforce or monitor")
		vulnScan     = flag.Bool("vuln-scan", true, "enable vulnerability scanning when no policy route overrides it")
		validateReq  = flag.Bool("validate-request", true, "enable OpenAPI request validation when a spec is loaded")
		adminAddr    = flag.String("admin-listen", ":8090", "address for the admin endpoint (empty disables it)")
		adminKeyID   = flag.String("admin-key-id", "", "key ID the admin endpoint expects in its signature (used when admin-ed25519-pubkey is set)")
		adminEd25519 = flag.String("admin-ed25519-pubkey", "", "base64-encoded Ed25519 public key authorized to call the admin endpoint")
		maxBodyBytes = flag.Int64("max-body-bytes", 1<<20, "maximum request body size accepted")
	)
	flag.Parse()

	logger := slog.Default()

	g, err := buildGateway(*policyPath, *openapiPath, *mode, *vulnScan, *validateReq, *maxBodyBytes, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	upstreamURL, err := url.Parse(*upstream)
	if err != nil {
		return fmt.Errorf("parse upstream: %w", err)
	}

	router, err := buildRouter(g, upstreamURL, logger)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var adminSrv *http.Server
	if *adminAddr != "" {
		adminRouter, err := buildAdminRouter(g, *adminKeyID, *adminEd25519)
		if err != nil {
			return fmt.Errorf("build admin router: %w", err)
		}
		adminSrv = &http.Server{
			Addr:              *adminAddr,
			Handler:           adminRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gatekeeper listening", "addr", *listenAddr, "upstream", *upstream)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()
	if adminSrv != nil {
		go func() {
			logger.Info("admin endpoint listening", "addr", *adminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if adminSrv != nil {
		_ = adminSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// buildGateway loads the policy/OpenAPI sources (if any) and constructs
// the Gateway shared by the proxy router and the admin router's status
// endpoint.
func buildGateway(policyPath, openapiPath, modeFlag string, vulnScan, validateReq bool, maxBody int64, logger *slog.Logger) (*gateway.Gateway, error) {
	m, err := parseMode(modeFlag)
	if err != nil {
		return nil, err
	}

	cfg := gateway.Config{
		PolicyPath:        policyPath,
		OpenAPIPath:       openapiPath,
		ValidateRequest:   validateReq,
		VulnerabilityScan: vulnScan,
		Mode:              m,
		LogDecisions:      true,
		Logger:            logger,
		MaxBodySize:       maxBody,
	}

	g, err := gateway.New(cfg)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func parseMode(s string) (policy.Mode, error) {
	switch s {
	case "enforce":
		return policy.ModeEnforce, nil
	case "monitor":
		return policy.ModeMonitor, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want enforce or monitor)", s)
	}
}

// buildRouter assembles the public-facing handler chain: the teacher's
// standard middleware stack (recovery, request ID, security headers,
// compression, request size limit) wrapping the gateway, wrapping a
// reverse proxy to upstream.
func buildRouter(g *gateway.Gateway, upstream *url.URL, logger *slog.Logger) (http.Handler, error) {
	r := mux.NewRouter()

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
		logger.Error("upstream proxy error", "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	gatewayMW := mux.MiddlewareFunc(func(next http.Handler) http.Handler {
		return g.Wrap(next)
	})

	sizeLimitMW, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
		MaxBytes: 10 << 20,
	})
	if err != nil {
		return nil, err
	}

	securityMW, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
		HSTSMaxAge: 31536000,
	})
	if err != nil {
		return nil, err
	}

	compressionMW, err := muxhandlers.CompressionMiddleware(muxhandlers.CompressionConfig{})
	if err != nil {
		return nil, err
	}

	r.PathPrefix("/").Handler(proxy)

	r.Use(
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
			LogFunc: func(req *http.Request, recovered any) {
				logger.Error("panic recovered", "path", req.URL.Path, "value", recovered)
			},
		}),
		muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}),
		securityMW,
		compressionMW,
		sizeLimitMW,
		gatewayMW,
	)

	return r, nil
}

// buildAdminRouter exposes a status endpoint protected by RFC 9421 HTTP
// message signatures: only a caller holding the configured Ed25519
// private key can read it. Falls back to an unauthenticated health check
// when no admin key is configured.
func buildAdminRouter(g *gateway.Gateway, keyID, pubKeyB64 string) (http.Handler, error) {
	r := mux.NewRouter()

	if pubKeyB64 == "" {
		r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			mux.ResponseJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		return r, nil
	}

	pubKeyRaw, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode admin public key: %w", err)
	}
	if len(pubKeyRaw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("admin public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubKeyRaw))
	}
	verifier, err := httpsig.NewEd25519Verifier(keyID, ed25519.PublicKey(pubKeyRaw))
	if err != nil {
		return nil, fmt.Errorf("build admin verifier: %w", err)
	}

	sigMW, err := httpsig.Middleware(httpsig.MiddlewareConfig{
		Verify: httpsig.VerifyConfig{
			Resolver: func(_ *http.Request, requestKeyID string, _ httpsig.Algorithm) (httpsig.Verifier, error) {
				if requestKeyID != keyID {
					return nil, fmt.Errorf("unknown key ID %q", requestKeyID)
				}
				return verifier, nil
			},
			RequiredComponents: []string{"@method", "@path"},
			MaxAge:             5 * time.Minute,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build admin signature middleware: %w", err)
	}

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		mux.ResponseJSON(w, http.StatusOK, g.Status())
	}).Methods(http.MethodGet)

	r.Use(sigMW)

	return r, nil
}
