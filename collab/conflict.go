package collab

import (
	"collab-hub/domain"
	"collab-hub/errors"
)

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
	StrategyCustom Strategy = "custom"
)

// Choice is a per-field pick within the custom strategy.
type Choice string

const (
	ChooseLocal  Choice = "local"
	ChooseRemote Choice = "remote"
)

// Resolve produces a single entity from two divergent versions.
//
// local keeps the local value for every conflicted field; remote adopts the
// remote values; custom seeds from local and applies the per-field picks,
// with unpicked fields falling back to local. The returned tag records the
// provenance of the result.
func Resolve(rec domain.ConflictRecord, strategy Strategy, picks map[string]Choice) (domain.Entity, domain.Resolution) {
	switch strategy {
	case StrategyRemote:
		return rec.Remote.Clone(), domain.ResolutionRemote
	case StrategyCustom:
		resolved := rec.Local.Clone()
		for _, field := range rec.ConflictedFields {
			if picks[field] == ChooseRemote {
				resolved[field] = rec.Remote[field]
			}
		}
		return resolved, domain.ResolutionMerged
	default:
		return rec.Local.Clone(), domain.ResolutionLocal
	}
}

// ResolveFunc receives the resolution outcome. Persisting it (re-issuing
// the update) is the caller's job.
type ResolveFunc func(resolved domain.Entity, tag domain.Resolution)

// ConflictFlow is the interactive resolution session driven by the dialog:
// the user inspects both versions, optionally picks per field, then applies
// a strategy or cancels.
type ConflictFlow struct {
	record    domain.ConflictRecord
	picks     map[string]Choice
	onResolve ResolveFunc
	done      bool
}

func NewConflictFlow(rec domain.ConflictRecord, onResolve ResolveFunc) *ConflictFlow {
	return &ConflictFlow{
		record:    rec,
		picks:     make(map[string]Choice),
		onResolve: onResolve,
	}
}

// Pick records a per-field choice for the custom strategy.
func (f *ConflictFlow) Pick(field string, c Choice) {
	f.picks[field] = c
}

// Record returns the conflict being resolved, for display.
func (f *ConflictFlow) Record() domain.ConflictRecord {
	return f.record
}

// Apply resolves with the given strategy and hands the result to the
// caller. A flow can conclude only once.
func (f *ConflictFlow) Apply(strategy Strategy) error {
	if f.done {
		return errors.ErrConflictUnresolved
	}
	f.done = true
	resolved, tag := Resolve(f.record, strategy, f.picks)
	f.onResolve(resolved, tag)
	return nil
}

// Cancel abandons the flow with no changes applied. The caller must treat
// this as "no-op, try again", never as success.
func (f *ConflictFlow) Cancel() error {
	f.done = true
	return errors.ErrConflictUnresolved
}
