package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// VerifyMigration re-reads the target federation snapshot and compares
// upstream and federation policy counts against the expected snapshot.
// Verification is advisory: any mismatch or read failure is a warning and
// yields false, never a fatal error.
func VerifyMigration(ctx context.Context, target *rabbit.Client, expected models.Snapshot, keep models.PolicyFilter) bool {
	log := zap.S().Named("verifier")

	current, err := FetchSnapshot(ctx, target, keep)
	if err != nil {
		log.Warnw("error during verification", "error", err)
		return false
	}

	expectedUpstreams := len(expected.Upstreams)
	actualUpstreams := len(current.Upstreams)
	expectedPolicies := len(expected.Policies)
	actualPolicies := len(current.Policies)

	log.Infow("federation verification",
		"expected_upstreams", expectedUpstreams,
		"actual_upstreams", actualUpstreams,
		"expected_policies", expectedPolicies,
		"actual_policies", actualPolicies,
	)

	if expectedUpstreams != actualUpstreams || expectedPolicies != actualPolicies {
		log.Warn("federation counts do not match")
		return false
	}

	log.Info("federation verification successful")
	return true
}
