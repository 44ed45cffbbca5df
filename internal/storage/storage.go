// Package storage defines the refinement audit log. Implementations live in
// the memory and sqlite subpackages.
package storage

import (
	"context"
	"time"
)

// Outcome of a refinement attempt.
const (
	StatusRefined  = "refined"
	StatusFallback = "fallback"
	StatusFailed   = "failed"
)

// Refinement is one chat refinement attempt.
type Refinement struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	Mode           string        `json:"mode"`
	TargetLanguage string        `json:"target_language,omitempty"`
	Input          string        `json:"input"`
	Output         string        `json:"output"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ListOptions filters and bounds List results.
type ListOptions struct {
	TenantID string
	Limit    int
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// RefinementStore persists refinement records. List returns newest first.
type RefinementStore interface {
	Save(ctx context.Context, r *Refinement) error
	List(ctx context.Context, opts ListOptions) ([]*Refinement, error)
	Close() error
}

// EffectiveLimit returns Limit, or DefaultListLimit when unset.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}
