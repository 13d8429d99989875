package models

import "time"

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// IsTerminal reports whether the status is final and will not change
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	}
	return false
}

// Run represents a simulation run
type Run struct {
	ID          string            `json:"id"`
	Status      RunStatus         `json:"status"`
	Title       string            `json:"title,omitempty"`
	ModelYAML   string            `json:"model_yaml,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartTime   time.Time         `json:"start_time,omitempty"`
	EndTime     time.Time         `json:"end_time,omitempty"`
	Duration    time.Duration     `json:"duration,omitempty"`
	Results     *RunResults       `json:"results,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MarkRunning transitions the run to running and stamps the start time
func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// MarkCompleted transitions the run to completed and attaches results
func (r *Run) MarkCompleted(results *RunResults) {
	r.Status = RunStatusCompleted
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Results = results
}

// MarkFailed transitions the run to failed with the given error message
func (r *Run) MarkFailed(msg string) {
	r.Status = RunStatusFailed
	r.EndTime = time.Now()
	if !r.StartTime.IsZero() {
		r.Duration = r.EndTime.Sub(r.StartTime)
	}
	r.Error = msg
}

// MarkCanceled transitions the run to canceled
func (r *Run) MarkCanceled() {
	r.Status = RunStatusCanceled
	r.EndTime = time.Now()
	if !r.StartTime.IsZero() {
		r.Duration = r.EndTime.Sub(r.StartTime)
	}
}

// Summary returns the lightweight listing view of the run
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:          r.ID,
		Status:      r.Status,
		Title:       r.Title,
		SubmittedAt: r.SubmittedAt,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Duration:    r.Duration,
		Error:       r.Error,
	}
}

// RunSummary is the compact form of a run used in listings
type RunSummary struct {
	ID          string        `json:"id"`
	Status      RunStatus     `json:"status"`
	Title       string        `json:"title,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	StartTime   time.Time     `json:"start_time,omitempty"`
	EndTime     time.Time     `json:"end_time,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// RunResults contains the outputs of a completed simulation run
type RunResults struct {
	Timesteps int                        `json:"timesteps"`
	Scenarios int                        `json:"scenarios"`
	Recorders map[string]*RecorderResult `json:"recorders,omitempty"`
}

// WithoutSeries returns a copy of the results with the per-timestep
// series dropped from every recorder. Listings and webhook payloads use
// this; the full series stays on the stored record.
func (r *RunResults) WithoutSeries() *RunResults {
	if r == nil {
		return nil
	}
	out := &RunResults{
		Timesteps: r.Timesteps,
		Scenarios: r.Scenarios,
	}
	if r.Recorders != nil {
		out.Recorders = make(map[string]*RecorderResult, len(r.Recorders))
		for name, rec := range r.Recorders {
			cp := *rec
			cp.Series = nil
			out.Recorders[name] = &cp
		}
	}
	return out
}

// RecorderResult contains the recorded output for a single recorder.
// Values holds one aggregated value per scenario, indexed by the
// scenario's global id. AggregatedValue combines those across
// scenarios. Series optionally carries the raw per timestep data.
type RecorderResult struct {
	Recorder        string      `json:"recorder"`
	Aggregate       string      `json:"aggregate"`
	Values          []float64   `json:"values"`
	AggregatedValue float64     `json:"aggregated_value"`
	Series          [][]float64 `json:"series,omitempty"`
}
