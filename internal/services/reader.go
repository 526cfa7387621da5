package services

import (
	"context"

	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// FetchSnapshot performs the two sequential primary reads against one
// broker: the federation-upstream parameters of the vhost, then its
// policies, filtered by keep. Any failure here is a fatal fetch error for
// the caller.
func FetchSnapshot(ctx context.Context, client *rabbit.Client, keep models.PolicyFilter) (models.Snapshot, error) {
	upstreams, err := client.FederationUpstreams(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	policies, err := client.Policies(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	return models.Snapshot{
		Upstreams: upstreams,
		Policies:  models.FilterPolicies(policies, keep),
	}, nil
}
