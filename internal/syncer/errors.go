package syncer

import "fmt"

// Phase names one step of a sync run
type Phase string

const (
	PhaseScrape      Phase = "scrape"
	PhaseEnrich      Phase = "enrich"
	PhaseUpsert      Phase = "upsert"
	PhaseDeleteStale Phase = "delete-stale"
	PhaseRelations   Phase = "relation-replace"
)

// PhaseError is returned by Run when a phase fails. Phases before it stay committed.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
