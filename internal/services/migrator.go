package services

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rabbitops/fedmig/internal/config"
	"github.com/rabbitops/fedmig/internal/models"
	apperrors "github.com/rabbitops/fedmig/pkg/errors"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// ConfirmFunc asks the operator a yes/no question. Injectable so the
// interactive prompt never blocks a test.
type ConfirmFunc func(question string) bool

// Migrator copies the federation configuration of the source broker onto
// the target broker, with backups before any destructive write and an
// advisory verification afterwards.
type Migrator struct {
	cfg      *config.Config
	source   *rabbit.Client
	target   *rabbit.Client
	exporter *Exporter
	filter   models.PolicyFilter
	confirm  ConfirmFunc
	now      func() time.Time
	log      *zap.SugaredLogger
}

type MigratorOption func(*Migrator)

// WithMigratorClients overrides both broker clients, for tests.
func WithMigratorClients(source, target *rabbit.Client) MigratorOption {
	return func(m *Migrator) {
		m.source = source
		m.target = target
	}
}

// WithMigratorConfirm overrides the interactive confirmation.
func WithMigratorConfirm(confirm ConfirmFunc) MigratorOption {
	return func(m *Migrator) {
		m.confirm = confirm
	}
}

// WithMigratorFilter overrides the federation policy predicate.
func WithMigratorFilter(filter models.PolicyFilter) MigratorOption {
	return func(m *Migrator) {
		m.filter = filter
	}
}

// WithMigratorClock overrides the clock used for backup filenames.
func WithMigratorClock(now func() time.Time) MigratorOption {
	return func(m *Migrator) {
		m.now = now
	}
}

func NewMigrator(cfg *config.Config, opts ...MigratorOption) *Migrator {
	m := &Migrator{
		cfg:      cfg,
		source:   rabbit.NewClient(cfg.Source.Endpoint()),
		target:   rabbit.NewClient(cfg.Target.Endpoint()),
		exporter: NewExporter(),
		filter:   models.FederationPolicyFilter,
		confirm:  func(string) bool { return true },
		now:      time.Now,
		log:      zap.S().Named("migrator"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes the full migration workflow. A nil return with nothing
// written happens when there is nothing to migrate or the operator declines
// the continue-anyway prompt; both map to exit 0.
func (m *Migrator) Run(ctx context.Context) error {
	color.New(color.Bold, color.FgCyan).Println("\n=== RabbitMQ Federation Migrator ===")

	if m.cfg.TestMode {
		color.Yellow("\nTEST MODE ACTIVE - Validating configurations without making changes")
	} else if m.cfg.DryRun {
		color.Yellow("\nDRY RUN MODE ACTIVE - No changes will be made")
	}

	m.log.Infow("migration endpoints",
		"source", m.source.Endpoint().Addr(),
		"target", m.target.Endpoint().Addr(),
	)

	m.log.Info("testing authentication with source RabbitMQ")
	if !m.source.ProbeAuth(ctx) {
		return apperrors.NewAuthFailedError("source RabbitMQ")
	}
	m.log.Info("testing authentication with target RabbitMQ")
	if !m.target.ProbeAuth(ctx) {
		return apperrors.NewAuthFailedError("target RabbitMQ")
	}

	if proceed := m.checkPlugins(ctx); !proceed {
		m.log.Info("migration aborted")
		return nil
	}

	m.log.Info("fetching federation configuration from source RabbitMQ")
	snapshot, err := FetchSnapshot(ctx, m.source, m.filter)
	if err != nil {
		return err
	}

	m.log.Infow("source federation configuration",
		"upstreams", len(snapshot.Upstreams),
		"policies", len(snapshot.Policies),
	)
	if snapshot.Empty() {
		m.log.Warn("no federations found, nothing to migrate")
		return nil
	}

	if !m.cfg.SkipWrites() {
		m.backup(ctx, snapshot)
	}

	// Reference copy of what is about to be migrated.
	if err := m.exporter.Export(snapshot, DefaultExportFile); err != nil {
		m.log.Warnw("failed to export federation configuration", "error", err)
	}

	m.log.Info("creating federations on target RabbitMQ")
	writer := NewWriter(m.target, WriterConfig{
		Prefix:     m.cfg.Prefix,
		SourceHost: m.cfg.Source.Host,
		TargetHost: m.cfg.Target.Host,
		SkipWrites: m.cfg.SkipWrites(),
		SkipReason: m.cfg.WriteSkipReason(),
	})
	report := writer.Apply(ctx, snapshot)
	m.log.Infow("write batch finished",
		"upstreams_created", report.UpstreamsCreated,
		"upstreams_failed", report.UpstreamsFailed,
		"policies_created", report.PoliciesCreated,
		"policies_failed", report.PoliciesFailed,
	)

	if m.cfg.Verify && !m.cfg.SkipWrites() {
		m.log.Info("verifying federations")
		VerifyMigration(ctx, m.target, snapshot, m.filter)
	}

	if m.cfg.TestMode {
		color.Green("\nTest completed! No actual changes were made.")
	} else {
		color.Green("\nMigration completed!")
	}
	return nil
}

// checkPlugins detects the federation plugin on both brokers. Findings are
// advisory; only a missing plugin on the target in a real run asks the
// operator whether to continue. Returns false when the operator declines.
func (m *Migrator) checkPlugins(ctx context.Context) bool {
	m.log.Info("checking federation plugin on source RabbitMQ")
	sourceOK := m.checkFederationPlugin(ctx, m.source)
	m.log.Info("checking federation plugin on target RabbitMQ")
	targetOK := m.checkFederationPlugin(ctx, m.target)

	if !sourceOK {
		m.log.Warn("federation plugin might not be properly enabled on source RabbitMQ")
	}
	if !targetOK {
		m.log.Warn("federation plugin might not be properly enabled on target RabbitMQ; upstream creation may fail")
		if !m.cfg.SkipWrites() {
			return m.confirm("Federation plugin not detected on target. Do you want to continue anyway?")
		}
	}
	return true
}

// checkFederationPlugin looks for the x-federation-upstream exchange type
// and probes the federation-links endpoint of the management plugin.
func (m *Migrator) checkFederationPlugin(ctx context.Context, client *rabbit.Client) bool {
	exchanges, err := client.Exchanges(ctx)
	if err != nil {
		m.log.Warnw("error checking federation plugin", "error", err)
		return false
	}

	enabled := false
	for _, exchange := range exchanges {
		if exchange.Type == models.FederationExchangeType {
			enabled = true
			break
		}
	}
	if enabled {
		m.log.Info("federation plugin is enabled")
	} else {
		m.log.Warn("x-federation-upstream exchange type not found")
	}

	if _, err := client.FederationLinks(ctx); err != nil {
		m.log.Warn("federation management plugin might not be enabled (/api/federation-links not accessible)")
	} else {
		m.log.Info("federation management plugin is enabled")
	}

	return enabled
}

// backup exports timestamped snapshots of both sides before any write. The
// source snapshot was already captured; the target read is best-effort
// because an empty or unreadable target simply means nothing to back up.
func (m *Migrator) backup(ctx context.Context, source models.Snapshot) {
	runID := uuid.NewString()
	ts := m.now()
	log := m.log.With("backup_run", runID)

	sourceFile := BackupFilename("source", ts)
	if err := m.exporter.Export(source, sourceFile); err != nil {
		log.Warnw("failed to back up source configuration", "error", err)
	} else {
		log.Infow("source configuration backed up", "file", sourceFile)
	}

	target, err := FetchSnapshot(ctx, m.target, m.filter)
	if err != nil {
		log.Warnw("no existing federation configuration found on target or error accessing it", "error", err)
		return
	}
	if target.Empty() {
		log.Info("no existing federation configuration on target, nothing to back up")
		return
	}

	targetFile := BackupFilename("target", ts)
	if err := m.exporter.Export(target, targetFile); err != nil {
		log.Warnw("failed to back up target configuration", "error", err)
		return
	}
	log.Infow("target configuration backed up", "file", targetFile)
}
