package lockscreen

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Presenter adapts a Bubble Tea program to the gate's presenter contract.
// The program is started by ShowLocked; status and terminate requests are
// delivered as messages and are dropped when the screen was never shown.
type Presenter struct {
	prog *tea.Program

	mu     sync.Mutex
	shown  bool
	exited chan struct{}
	err    error
}

// NewPresenter wraps m in a program. Options are passed to tea.NewProgram.
func NewPresenter(m Model, opts ...tea.ProgramOption) *Presenter {
	return &Presenter{
		prog:   tea.NewProgram(m, opts...),
		exited: make(chan struct{}),
	}
}

// ShowLocked starts the program in the background
func (p *Presenter) ShowLocked() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown {
		return
	}
	p.shown = true
	go func() {
		_, err := p.prog.Run()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.exited)
	}()
}

// ReportStatus updates the status line
func (p *Presenter) ReportStatus(msg string) {
	p.send(StatusMsg(msg))
}

// Terminate closes the screen after an unlock
func (p *Presenter) Terminate() {
	p.send(UnlockedMsg{})
}

// Kill tears the screen down without an unlock, restoring the terminal
func (p *Presenter) Kill() {
	if p.isShown() {
		p.prog.Kill()
	}
}

// Wait blocks until the program exits and returns its error. It returns
// immediately when the screen was never shown.
func (p *Presenter) Wait() error {
	if !p.isShown() {
		return nil
	}
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Exited is closed once the program has stopped
func (p *Presenter) Exited() <-chan struct{} {
	return p.exited
}

func (p *Presenter) isShown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

// send blocks until the event loop takes msg or the program has exited.
// It must never be called from inside Update.
func (p *Presenter) send(msg tea.Msg) {
	if !p.isShown() {
		return
	}
	p.prog.Send(msg)
}
