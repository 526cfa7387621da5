package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/rabbitops/fedmig/internal/config"
	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/internal/util"
	apperrors "github.com/rabbitops/fedmig/pkg/errors"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// Inspector connects to one broker, reports its federation configuration in
// human-readable form and exports a snapshot file.
type Inspector struct {
	cfg      *config.Config
	source   *rabbit.Client
	exporter *Exporter
	filter   models.PolicyFilter
	prober   UpstreamProber
	log      *zap.SugaredLogger
}

type InspectorOption func(*Inspector)

// WithInspectorClient overrides the source client, for tests.
func WithInspectorClient(client *rabbit.Client) InspectorOption {
	return func(i *Inspector) {
		i.source = client
	}
}

// WithInspectorProber overrides the AMQP reachability prober.
func WithInspectorProber(prober UpstreamProber) InspectorOption {
	return func(i *Inspector) {
		i.prober = prober
	}
}

// WithInspectorFilter overrides the federation policy predicate.
func WithInspectorFilter(filter models.PolicyFilter) InspectorOption {
	return func(i *Inspector) {
		i.filter = filter
	}
}

func NewInspector(cfg *config.Config, opts ...InspectorOption) *Inspector {
	i := &Inspector{
		cfg:      cfg,
		source:   rabbit.NewClient(cfg.Source.Endpoint()),
		exporter: NewExporter(),
		filter:   models.FederationPolicyFilter,
		prober:   DialUpstream,
		log:      zap.S().Named("inspector"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run inspects the source broker. Authentication and primary fetch failures
// are fatal; link status and the reachability probe are advisory; an empty
// federation configuration is a clean exit.
func (i *Inspector) Run(ctx context.Context) error {
	header := color.New(color.Bold, color.FgCyan)
	header.Println("\n=== RabbitMQ Federation Inspector ===")
	fmt.Printf("\nRabbitMQ: %s\n", i.source.Endpoint().Addr())

	if !i.source.ProbeAuth(ctx) {
		return apperrors.NewAuthFailedError(i.source.Endpoint().Addr())
	}

	i.log.Info("fetching federation configuration")
	snapshot, err := FetchSnapshot(ctx, i.source, i.filter)
	if err != nil {
		return err
	}

	fmt.Printf("\nFound federation upstreams: %d\n", len(snapshot.Upstreams))
	fmt.Printf("Found federation policies: %d\n", len(snapshot.Policies))

	if snapshot.Empty() {
		color.Yellow("\nNo federations found!")
		return nil
	}

	i.printUpstreams(snapshot.Upstreams)
	i.printPolicies(snapshot.Policies)
	i.printLinkStatus(ctx)

	if i.cfg.ProbeUpstreams {
		i.probeUpstreams(snapshot.Upstreams)
	}

	if err := i.exporter.Export(snapshot, DefaultExportFile); err != nil {
		i.log.Warnw("failed to export federation configuration", "error", err)
	}

	color.Green("\nInspection completed!")
	return nil
}

func (i *Inspector) printUpstreams(upstreams []models.Upstream) {
	color.New(color.Bold).Println("\nFederation Upstream Details:")
	for idx, upstream := range upstreams {
		fmt.Printf("\n%d. %s\n", idx+1, upstream.Name)
		fmt.Printf("   URI: %s\n", valueOrNA(util.MaskPassword(upstream.Value.URI())))
		fmt.Printf("   Exchange: %s\n", valueOrNA(upstream.Value.Exchange()))
	}
}

func (i *Inspector) printPolicies(policies []models.Policy) {
	color.New(color.Bold).Println("\nFederation Policy Details:")
	for idx, policy := range policies {
		fmt.Printf("\n%d. %s\n", idx+1, policy.Name)
		fmt.Printf("   Pattern: %s\n", policy.Pattern)
		fmt.Printf("   Priority: %d\n", policy.Priority)
		if refs := policy.UpstreamRefs(); len(refs) > 0 {
			fmt.Printf("   Upstreams: %s\n", strings.Join(refs, ", "))
		}
	}
}

// printLinkStatus reports running federation links; failure here is
// advisory and yields an empty report with a warning.
func (i *Inspector) printLinkStatus(ctx context.Context) {
	links, err := i.source.FederationLinks(ctx)
	if err != nil {
		i.log.Warnw("could not get federation status", "error", err)
		return
	}
	if len(links) == 0 {
		return
	}

	color.New(color.Bold).Println("\nFederation Link Status:")
	for _, link := range links {
		fmt.Printf("   %s -> %s: %s\n", valueOrNA(link.Upstream), valueOrNA(link.Exchange), valueOrNA(link.Status))
	}
}

func (i *Inspector) probeUpstreams(upstreams []models.Upstream) {
	color.New(color.Bold).Println("\nUpstream Reachability:")
	for _, upstream := range upstreams {
		uri := upstream.Value.URI()
		if uri == "" {
			fmt.Printf("   %s: no URI\n", upstream.Name)
			continue
		}
		if err := i.prober(uri); err != nil {
			color.Red("   %s: unreachable (%v)", upstream.Name, err)
			i.log.Warnw("upstream unreachable", "upstream", upstream.Name, "error", err)
			continue
		}
		color.Green("   %s: reachable", upstream.Name)
	}
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
