package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/internal/util"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// WriterConfig controls how a source snapshot is rewritten on its way to
// the target broker.
type WriterConfig struct {
	// Prefix is prepended to every upstream and policy name; the same
	// prefix is applied to federation-upstream references inside policy
	// definitions so references stay valid.
	Prefix string

	// SourceHost/TargetHost drive the circular-federation guard: an
	// upstream URI containing the source host literal is rewritten to
	// point at the target host instead of back at itself.
	SourceHost string
	TargetHost string

	// SkipWrites suppresses every PUT; intended actions are logged with
	// SkipReason instead.
	SkipWrites bool
	SkipReason string
}

// WriteReport counts the outcome of one write batch.
type WriteReport struct {
	UpstreamsCreated int
	UpstreamsFailed  int
	UpstreamsSkipped int
	PoliciesCreated  int
	PoliciesFailed   int
	PoliciesSkipped  int
}

// Writer creates federation upstreams and policies on a target broker.
// The batch is deliberately not atomic: one failed item is logged and the
// loop continues with the next.
type Writer struct {
	target *rabbit.Client
	cfg    WriterConfig
	log    *zap.SugaredLogger
}

func NewWriter(target *rabbit.Client, cfg WriterConfig) *Writer {
	return &Writer{
		target: target,
		cfg:    cfg,
		log:    zap.S().Named("writer"),
	}
}

// Apply creates every upstream and policy of the snapshot on the target.
func (w *Writer) Apply(ctx context.Context, snapshot models.Snapshot) WriteReport {
	var report WriteReport

	w.log.Infof("creating %d federation upstreams", len(snapshot.Upstreams))
	for idx, upstream := range snapshot.Upstreams {
		name := w.cfg.Prefix + upstream.Name
		w.log.Infow("processing upstream", "index", idx+1, "total", len(snapshot.Upstreams), "name", name)

		if w.cfg.SkipWrites {
			w.log.Infof("%s: would create federation upstream %s", w.cfg.SkipReason, name)
			report.UpstreamsSkipped++
			continue
		}

		value := w.rewriteValue(upstream.Value)
		if err := w.target.PutFederationUpstream(ctx, name, value); err != nil {
			w.log.Errorw("failed to create federation upstream", "name", name, "error", err)
			report.UpstreamsFailed++
			continue
		}
		w.log.Infow("created federation upstream", "name", name, "uri", util.MaskPassword(value.URI()))
		report.UpstreamsCreated++
	}

	w.log.Infof("creating %d federation policies", len(snapshot.Policies))
	for idx, policy := range snapshot.Policies {
		name := w.cfg.Prefix + policy.Name
		w.log.Infow("processing policy", "index", idx+1, "total", len(snapshot.Policies), "name", name)

		rewritten := policy.PrefixUpstreamRefs(w.cfg.Prefix)

		if w.cfg.SkipWrites {
			w.log.Infof("%s: would create federation policy %s", w.cfg.SkipReason, name)
			report.PoliciesSkipped++
			continue
		}

		if err := w.target.PutPolicy(ctx, name, rewritten); err != nil {
			w.log.Errorw("failed to create federation policy", "name", name, "error", err)
			report.PoliciesFailed++
			continue
		}
		w.log.Infow("created federation policy", "name", name)
		report.PoliciesCreated++
	}

	return report
}

// rewriteValue returns a copy of the upstream value with the URI pointed at
// the target host when it referenced the source host. Copying keeps the
// captured snapshot immutable.
func (w *Writer) rewriteValue(value models.UpstreamValue) models.UpstreamValue {
	out := value.Clone()
	uri := out.URI()
	if uri == "" {
		return out
	}
	if rewritten, changed := util.RewriteHost(uri, w.cfg.SourceHost, w.cfg.TargetHost); changed {
		out.SetURI(rewritten)
		w.log.Infow("rewrote upstream URI to avoid circular federation",
			"from", util.MaskPassword(uri), "to", util.MaskPassword(rewritten))
	}
	return out
}
