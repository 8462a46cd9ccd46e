package model

import (
	"fmt"
	"strings"
	"time"
)

type SyncScope string

const (
	SyncScopeAll        SyncScope = "ALL"
	SyncScopeStores     SyncScope = "STORES"
	SyncScopeCategories SyncScope = "CATEGORIES"
	SyncScopeProducts   SyncScope = "PRODUCTS"
)

func ParseSyncScope(s string) (SyncScope, error) {
	switch scope := SyncScope(strings.ToUpper(strings.TrimSpace(s))); scope {
	case SyncScopeAll, SyncScopeStores, SyncScopeCategories, SyncScopeProducts:
		return scope, nil
	case "":
		return SyncScopeAll, nil
	default:
		return "", fmt.Errorf("unknown sync scope %q", s)
	}
}

// Steps expands a scope into the entity kinds it runs, in dependency order.
func (s SyncScope) Steps() []SyncScope {
	if s == SyncScopeAll {
		return []SyncScope{SyncScopeStores, SyncScopeCategories, SyncScopeProducts}
	}
	return []SyncScope{s}
}

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

type StepStats struct {
	Created        int   `json:"created"`
	Updated        int   `json:"updated"`
	Unchanged      int   `json:"unchanged"`
	Skipped        int   `json:"skipped"`
	StockWritten   int64 `json:"stock_written,omitempty"`
	StockUnchanged int64 `json:"stock_unchanged,omitempty"`
	Failed         bool  `json:"failed,omitempty"`
}

type SyncResult struct {
	RunID      string                   `json:"run_id"`
	Scope      SyncScope                `json:"scope"`
	Status     SyncStatus               `json:"status"`
	Errors     []string                 `json:"errors,omitempty"`
	Steps      map[SyncScope]*StepStats `json:"steps"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

func NewSyncResult(runID string, scope SyncScope, startedAt time.Time) *SyncResult {
	return &SyncResult{
		RunID:     runID,
		Scope:     scope,
		Status:    SyncStatusSuccess,
		Steps:     make(map[SyncScope]*StepStats),
		StartedAt: startedAt,
	}
}

// Step returns the stats of a step, creating them on first use.
func (r *SyncResult) Step(step SyncScope) *StepStats {
	stats, ok := r.Steps[step]
	if !ok {
		stats = &StepStats{}
		r.Steps[step] = stats
	}
	return stats
}

func (r *SyncResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Finish settles Status: failed when every step failed, partial when anything
// was reported, success otherwise.
func (r *SyncResult) Finish(at time.Time) {
	r.FinishedAt = at

	failed := 0
	for _, stats := range r.Steps {
		if stats.Failed {
			failed++
		}
	}
	switch {
	case len(r.Steps) > 0 && failed == len(r.Steps):
		r.Status = SyncStatusFailed
	case failed > 0 || len(r.Errors) > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusSuccess
	}
}
