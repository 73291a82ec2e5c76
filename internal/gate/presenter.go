package gate

// Presenter is the presentation adapter the controller drives. The
// presenter in turn calls Tick, Override, SubmitCredential and RequestExit.
// Implementations must be safe to call from any goroutine.
type Presenter interface {
	ShowLocked()
	Terminate()
	ReportStatus(msg string)
}

// NopPresenter ignores every call
type NopPresenter struct{}

func (NopPresenter) ShowLocked()         {}
func (NopPresenter) Terminate()          {}
func (NopPresenter) ReportStatus(string) {}
