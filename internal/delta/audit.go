// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delta

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

// Auditor counts per-field differences between two generations for
// operator reporting. Each field is counted independently, so one key
// can contribute to several counts; the audit list covers every
// row-view value field, including those excluded from change
// detection. Read-only: never used for control flow.
type Auditor struct {
	log *zap.Logger
}

// NewAuditor builds an Auditor.
func NewAuditor(log *zap.Logger) *Auditor {
	return &Auditor{log: log}
}

// Report counts, for every audited field, the keys present in both row
// views where that single field differs, plus the total changed count
// when a delta has been computed.
func (a *Auditor) Report(ctx context.Context, cand *store.Generation, baselineName, baselinePath string) (*types.AuditReport, error) {
	if err := cand.AttachBaseline(ctx, baselinePath); err != nil {
		return nil, err
	}
	defer cand.DetachBaseline(context.WithoutCancel(ctx))

	report := &types.AuditReport{
		Generation: cand.Name,
		Baseline:   baselineName,
		Fields:     make(map[string]int64, len(schema.AuditFields)),
	}

	// Total over the persisted changed set, if one exists.
	err := cand.DB().QueryRowContext(ctx,
		"SELECT count(*) FROM "+schema.ChangedKeysTable).Scan(&report.Changed)
	if err != nil {
		report.Changed = -1
	}

	for _, field := range schema.AuditFields {
		query := fmt.Sprintf(
			"SELECT count(*) FROM main.%[1]s JOIN baseline.%[1]s"+
				" ON main.%[1]s.%[2]s = baseline.%[1]s.%[2]s"+
				" WHERE main.%[1]s.%[3]s != baseline.%[1]s.%[3]s",
			schema.RowViewTable, schema.KeyColumn, field)
		var n int64
		if err := cand.DB().QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("generation %q: auditing field %q: %w", cand.Name, field, err)
		}
		report.Fields[field] = n
		a.log.Info("field difference count",
			zap.String("generation", cand.Name),
			zap.String("field", field),
			zap.Int64("count", n))
	}
	return report, nil
}
