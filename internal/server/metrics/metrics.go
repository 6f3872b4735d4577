// Package metrics holds the service's Prometheus collectors and the
// /metrics HTTP endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChallengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pally_challenges_issued_total",
		Help: "OTP challenge issue attempts by outcome",
	}, []string{"outcome"})

	ChallengeVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pally_challenge_verifications_total",
		Help: "OTP verification attempts by outcome",
	}, []string{"outcome"})

	DerivationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pally_key_derivation_seconds",
		Help:    "Time spent deriving a wallet key",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	WalletsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pally_wallets_created_total",
		Help: "Wallets derived and stored for the first time",
	})

	DecryptionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pally_credential_decryption_failures_total",
		Help: "Stored credentials that failed authentication on decrypt",
	})

	Deployments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pally_account_deployments_total",
		Help: "Account deployment attempts by outcome",
	}, []string{"outcome"})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
