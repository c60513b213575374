package harvest

import "fmt"

// Progress summarizes a single batch: how many deletion records were fetched,
// how many were propagated and how many failed, and whether the harvest cycle
// should stop.
type Progress struct {
	Found    int
	Ingested int
	Failed   int

	// Done is set once the source has no more records for this cycle.
	Done bool
	// Abort is set when the batch failed and the run must stop.
	Abort bool
}

// RecordIngested counts a successfully propagated record.
func (p *Progress) RecordIngested() { p.Ingested++ }

// RecordFailure counts a failed record and aborts the batch.
func (p *Progress) RecordFailure() {
	p.Failed++
	p.Abort = true
}

// FailureRateExceeded reports whether strictly more than half of the fetched
// records failed.
func (p *Progress) FailureRateExceeded() bool { return p.Failed > p.Found/2 }

// String renders the summary in the form used by batch log lines.
func (p Progress) String() string {
	return fmt.Sprintf("found: %d ingested: %d failed: %d", p.Found, p.Ingested, p.Failed)
}
