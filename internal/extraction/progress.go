package extraction

// ProgressReporter provides callbacks for reporting extraction progress.
// OnSourceDone is called from worker goroutines, so implementations must be
// safe for concurrent use.
type ProgressReporter interface {
	// OnExtractStart is called once with the number of sources.
	OnExtractStart(totalSources int)

	// OnSourceDone is called after each source is assembled.
	OnSourceDone(sourceID string, documents int)

	// OnExtractComplete is called when every source has been processed.
	OnExtractComplete(stats Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnExtractStart(totalSources int)             {}
func (n *NoOpProgressReporter) OnSourceDone(sourceID string, documents int) {}
func (n *NoOpProgressReporter) OnExtractComplete(stats Stats)               {}
