package indexer

// FileEvent describes what happened to one file during an indexing run.
// Repo identifies the run; concurrent IndexAll runs share one observer.
type FileEvent struct {
	Repo    string
	Path    string
	Verdict Verdict

	// Err is set when processing the file failed; Verdict then reflects
	// what was being attempted.
	Err error
}

// Observer receives progress events during an indexing run. Rendering
// (symbols, progress lines) belongs to the caller; the indexer only
// reports facts.
type Observer interface {
	RepoStarted(name, path string)
	FileSeen(event FileEvent)
	RepoFinished(name string, result *Result)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) RepoStarted(name, path string)            {}
func (NopObserver) FileSeen(event FileEvent)                  {}
func (NopObserver) RepoFinished(name string, result *Result) {}
