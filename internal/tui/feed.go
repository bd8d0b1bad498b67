package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/wasp/internal/model"
)

// StateMsg carries the newest store state into the program.
type StateMsg struct {
	State *model.State
}

// stateFeed hands store states to the program without blocking the store.
// Only the newest undelivered state is kept.
type stateFeed struct {
	ch   chan *model.State
	done chan struct{}
	once sync.Once
}

func newStateFeed() *stateFeed {
	return &stateFeed{
		ch:   make(chan *model.State, 1),
		done: make(chan struct{}),
	}
}

// push is called by the store with its notify lock held, so pushes are
// serialized and the loop ends after at most one drain.
func (f *stateFeed) push(st *model.State) {
	for {
		select {
		case f.ch <- st:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// wait returns a command that delivers the next state.
func (f *stateFeed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-f.ch:
			return StateMsg{State: st}
		case <-f.done:
			return nil
		}
	}
}

func (f *stateFeed) close() {
	f.once.Do(func() { close(f.done) })
}

// pollGroup tracks running polls so they can be cancelled and drained.
type pollGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newPollGroup() *pollGroup {
	ctx, cancel := context.WithCancel(context.Background())
	return &pollGroup{ctx: ctx, cancel: cancel}
}

// begin registers a poll. It reports false once the group is closed.
func (g *pollGroup) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *pollGroup) end() { g.wg.Done() }

// close cancels running polls, refuses new ones and waits for the rest.
func (g *pollGroup) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancel()
	g.wg.Wait()
}
