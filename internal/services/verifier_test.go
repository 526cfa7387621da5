package services_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/internal/services"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

var _ = Describe("VerifyMigration", func() {
	var (
		ctx      context.Context
		broker   *fakeBroker
		target   *rabbit.Client
		expected models.Snapshot
	)

	BeforeEach(func() {
		ctx = context.Background()
		broker = newFakeBroker()
		target = rabbit.NewClient(broker.endpoint("/"))

		expected = models.Snapshot{
			Upstreams: []models.Upstream{{Name: "u1", Value: models.UpstreamValue{"uri": "amqp://h"}}},
		}
	})

	// Given a target reporting exactly one upstream and zero federation policies
	// When the migration of {upstreams: [u1], policies: []} is verified
	// Then verification succeeds
	It("should return true when counts match exactly", func() {
		broker.serve("/api/parameters/federation-upstream/%2F",
			`[{"name":"u1","value":{"uri":"amqp://h"}}]`)
		broker.serve("/api/policies/%2F", `[]`)

		Expect(services.VerifyMigration(ctx, target, expected, models.FederationPolicyFilter)).To(BeTrue())
	})

	It("should return false when the target reports zero upstreams", func() {
		broker.serve("/api/parameters/federation-upstream/%2F", `[]`)
		broker.serve("/api/policies/%2F", `[]`)

		Expect(services.VerifyMigration(ctx, target, expected, models.FederationPolicyFilter)).To(BeFalse())
	})

	It("should only count federation policies on the target", func() {
		broker.serve("/api/parameters/federation-upstream/%2F",
			`[{"name":"u1","value":{"uri":"amqp://h"}}]`)
		// One non-federation policy must not disturb the comparison.
		broker.serve("/api/policies/%2F",
			`[{"name":"ha","pattern":".*","priority":0,"definition":{"ha-mode":"all"}}]`)

		Expect(services.VerifyMigration(ctx, target, expected, models.FederationPolicyFilter)).To(BeTrue())
	})

	It("should return false and stay advisory when the target read fails", func() {
		unreachable := rabbit.NewClient(rabbit.Endpoint{Host: "127.0.0.1", Port: "1", Username: "a", Password: "b"})

		Expect(services.VerifyMigration(ctx, unreachable, expected, models.FederationPolicyFilter)).To(BeFalse())
	})
})
