// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/eqlens/eqlens/internal/store"
)

// exportFile is the on-disk snapshot export consumed by external tooling.
type exportFile struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Snapshots   []store.Snapshot `json:"snapshots"`
}

// export writes all current snapshots to the export path. renameio gives us
// fsync plus atomic rename, so readers never observe a partial file.
func (r *Refresher) export(ctx context.Context) error {
	snaps, err := r.store.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.cfg.ExportPath), 0o750); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(r.cfg.ExportPath)
	if err != nil {
		return fmt.Errorf("create pending export: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportFile{
		GeneratedAt: time.Now().UTC(),
		Count:       len(snaps),
		Snapshots:   snaps,
	}); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}
