package models_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rabbitops/fedmig/internal/models"
)

func TestModels(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Models Suite")
}

var _ = Describe("FederationPolicyFilter", func() {
	// Given policies with and without federation definitions
	// When the default filter is applied
	// Then membership follows the serialized-definition heuristic
	It("should keep a policy whose definition references a federation upstream", func() {
		p := models.Policy{
			Name:       "fed-all",
			Pattern:    "^fed\\.",
			Definition: map[string]any{"federation-upstream": "upstream-a"},
		}

		Expect(models.FederationPolicyFilter(p)).To(BeTrue())
	})

	It("should keep a policy with an unknown federation-related key", func() {
		p := models.Policy{
			Name:       "fed-set",
			Pattern:    ".*",
			Definition: map[string]any{"federation-upstream-set": "all"},
		}

		Expect(models.FederationPolicyFilter(p)).To(BeTrue())
	})

	It("should drop a policy without any federation mention", func() {
		p := models.Policy{
			Name:       "ha",
			Pattern:    ".*",
			Definition: map[string]any{"ha-mode": "all"},
		}

		Expect(models.FederationPolicyFilter(p)).To(BeFalse())
	})

	It("should never grow the policy set when filtering", func() {
		policies := []models.Policy{
			{Name: "a", Definition: map[string]any{"federation-upstream": "u"}},
			{Name: "b", Definition: map[string]any{"ha-mode": "all"}},
			{Name: "c", Definition: map[string]any{"federation-upstream-set": "all"}},
		}

		filtered := models.FilterPolicies(policies, models.FederationPolicyFilter)

		Expect(len(filtered)).To(BeNumerically("<=", len(policies)))
		Expect(filtered).To(HaveLen(2))
		Expect(filtered[0].Name).To(Equal("a"))
		Expect(filtered[1].Name).To(Equal("c"))
	})

	It("should support an injected predicate", func() {
		policies := []models.Policy{
			{Name: "a"},
			{Name: "b"},
		}

		filtered := models.FilterPolicies(policies, func(p models.Policy) bool {
			return p.Name == "b"
		})

		Expect(filtered).To(HaveLen(1))
		Expect(filtered[0].Name).To(Equal("b"))
	})
})

var _ = Describe("Policy upstream references", func() {
	Context("UpstreamRefs", func() {
		It("should handle a single string reference", func() {
			p := models.Policy{Definition: map[string]any{"federation-upstream": "upstream-a"}}

			Expect(p.UpstreamRefs()).To(Equal([]string{"upstream-a"}))
		})

		// The management API serializes a multi-upstream reference as a
		// JSON list, which decodes to []any.
		It("should handle a decoded list reference", func() {
			var p models.Policy
			raw := `{"name":"p","pattern":".*","definition":{"federation-upstream":["a","b"]}}`
			Expect(json.Unmarshal([]byte(raw), &p)).To(Succeed())

			Expect(p.UpstreamRefs()).To(Equal([]string{"a", "b"}))
		})

		It("should return nothing when no reference exists", func() {
			p := models.Policy{Definition: map[string]any{"ha-mode": "all"}}

			Expect(p.UpstreamRefs()).To(BeEmpty())
		})
	})

	Context("PrefixUpstreamRefs", func() {
		It("should prefix a string reference", func() {
			p := models.Policy{Definition: map[string]any{"federation-upstream": "upstream-a"}}

			out := p.PrefixUpstreamRefs("migrated_")

			Expect(out.UpstreamRefs()).To(Equal([]string{"migrated_upstream-a"}))
		})

		It("should prefix every element of a list reference", func() {
			var p models.Policy
			raw := `{"name":"p","pattern":".*","definition":{"federation-upstream":["a","b"]}}`
			Expect(json.Unmarshal([]byte(raw), &p)).To(Succeed())

			out := p.PrefixUpstreamRefs("pre-")

			Expect(out.UpstreamRefs()).To(Equal([]string{"pre-a", "pre-b"}))
		})

		It("should not mutate the original policy", func() {
			p := models.Policy{Definition: map[string]any{"federation-upstream": "upstream-a"}}

			_ = p.PrefixUpstreamRefs("pre-")

			Expect(p.UpstreamRefs()).To(Equal([]string{"upstream-a"}))
		})

		It("should be the identity for an empty prefix", func() {
			p := models.Policy{Definition: map[string]any{"federation-upstream": "upstream-a"}}

			out := p.PrefixUpstreamRefs("")

			Expect(out.UpstreamRefs()).To(Equal([]string{"upstream-a"}))
		})
	})
})

var _ = Describe("UpstreamValue", func() {
	It("should preserve unknown keys through a JSON round trip", func() {
		raw := `{"name":"u","value":{"uri":"amqp://h","ack-mode":"on-confirm","some-future-key":42}}`

		var upstream models.Upstream
		Expect(json.Unmarshal([]byte(raw), &upstream)).To(Succeed())

		out, err := json.Marshal(upstream)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(ContainSubstring("some-future-key"))
	})

	It("should expose the URI and allow rewriting it on a clone only", func() {
		value := models.UpstreamValue{"uri": "amqp://old-host", "prefetch-count": 1000}

		clone := value.Clone()
		clone.SetURI("amqp://new-host")

		Expect(value.URI()).To(Equal("amqp://old-host"))
		Expect(clone.URI()).To(Equal("amqp://new-host"))
	})
})

var _ = Describe("Snapshot", func() {
	It("should report empty only when it has neither upstreams nor policies", func() {
		Expect(models.Snapshot{}.Empty()).To(BeTrue())
		Expect(models.Snapshot{Upstreams: []models.Upstream{{Name: "u"}}}.Empty()).To(BeFalse())
		Expect(models.Snapshot{Policies: []models.Policy{{Name: "p"}}}.Empty()).To(BeFalse())
	})
})
