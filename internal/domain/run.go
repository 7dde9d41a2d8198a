package domain

import "time"

type RunKind string

const (
	RunProbe        RunKind = "probe"
	RunSnapshot     RunKind = "snapshot"
	RunBackfill     RunKind = "backfill"
	RunBackfillFull RunKind = "backfill_full"
)

func ParseRunKind(s string) (RunKind, bool) {
	switch RunKind(s) {
	case RunProbe, RunSnapshot, RunBackfill, RunBackfillFull:
		return RunKind(s), true
	case "backfill-full":
		return RunBackfillFull, true
	}
	return "", false
}

type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusProcessing RunStatus = "processing"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// IngestRun is a queued invocation of one entry point.
type IngestRun struct {
	ID        string
	Kind      RunKind
	Symbols   []string
	Status    RunStatus
	Summary   *RunSummary
	Error     *string
	UpdatedAt time.Time
}

// SymbolOutcome is the per-symbol line of a run summary.
type SymbolOutcome struct {
	Symbol   string `json:"symbol"`
	Affected int    `json:"affected"`
	Window   int    `json:"window_days,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunSummary is the machine-readable result of any entry point.
type RunSummary struct {
	Kind        RunKind         `json:"kind"`
	Affected    int             `json:"affected"`
	Outcomes    []SymbolOutcome `json:"outcomes,omitempty"`
	Resolved    []string        `json:"resolved,omitempty"`
	Selected    string          `json:"selected,omitempty"`
	UsedDefault bool            `json:"used_default,omitempty"`
	Message     string          `json:"message"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// ProbeResult is the outcome of a full candidate sweep.
type ProbeResult struct {
	Resolved []ResolvedQuote
	Selected string
	// Failed is the resolved candidate whose Stock write failed, if any.
	Failed string
}
