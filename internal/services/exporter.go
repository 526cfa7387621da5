package services

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rabbitops/fedmig/internal/models"
	"github.com/rabbitops/fedmig/internal/util"
)

// DefaultExportFile is the filename of a plain snapshot export.
const DefaultExportFile = "federation_config.yaml"

const backupTimeFormat = "20060102-150405"

// BackupFilename names a timestamped backup file for one side of the
// migration; side is "source" or "target".
func BackupFilename(side string, ts time.Time) string {
	return fmt.Sprintf("%s_federation_backup_%s.yaml", side, ts.Format(backupTimeFormat))
}

// Exporter serializes federation snapshots to YAML files. Secrets embedded
// in upstream URIs are always masked before anything touches disk.
type Exporter struct {
	log *zap.SugaredLogger
}

func NewExporter() *Exporter {
	return &Exporter{log: zap.S().Named("exporter")}
}

// Export writes the snapshot to filename. The snapshot itself is never
// mutated: masking happens on a deep copy.
func (e *Exporter) Export(snapshot models.Snapshot, filename string) error {
	masked, err := maskSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("masking snapshot: %w", err)
	}

	data, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}

	e.log.Infow("federation configuration exported", "file", filename)
	return nil
}

// maskSnapshot deep-copies the snapshot through a JSON round trip and masks
// the password component of every upstream URI.
func maskSnapshot(snapshot models.Snapshot) (models.Snapshot, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return models.Snapshot{}, err
	}

	var copied models.Snapshot
	if err := json.Unmarshal(raw, &copied); err != nil {
		return models.Snapshot{}, err
	}

	for _, upstream := range copied.Upstreams {
		if uri := upstream.Value.URI(); uri != "" {
			upstream.Value.SetURI(util.MaskPassword(uri))
		}
	}
	return copied, nil
}
