// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/config"
	"github.com/j-veylop/sbu-reporter/internal/logger"
)

type (
	// RunStartedEvent is emitted when a pipeline run begins.
	RunStartedEvent struct {
		Request Request
	}

	// RunCompletedEvent is emitted when a pipeline run produced its tables.
	RunCompletedEvent struct {
		Result *Result
	}

	// ExportedEvent is emitted when report files were written.
	ExportedEvent struct {
		RunID string
		Paths []string
	}

	// RosterChangedEvent is emitted when the watched roster file changes.
	RosterChangedEvent struct {
		Path string
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (RunStartedEvent) isServiceEvent()    {}
func (RunCompletedEvent) isServiceEvent()  {}
func (ExportedEvent) isServiceEvent()      {}
func (RosterChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()         {}

// Manager runs the pipeline in the background and routes its events.
type Manager struct {
	mu          sync.RWMutex
	pipeline    *Pipeline
	request     Request
	latest      *Result
	running     bool
	closed      bool
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	timer       *time.Timer
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	subscribers []chan<- ServiceEvent
}

// NewManager creates a manager that serves req. A nil runner executes the configured commands.
func NewManager(cfg *config.Config, runner accounting.Runner, req Request) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pipeline: NewPipeline(cfg, runner),
		request:  req,
		debounce: cfg.WatchDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Latest returns the result of the last successful run, if any.
func (m *Manager) Latest() *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Refresh starts a run unless one is already in flight.
// It reports whether a run was started.
func (m *Manager) Refresh() bool {
	m.mu.Lock()
	if m.running || m.closed {
		m.mu.Unlock()
		return false
	}
	m.running = true
	req := m.request
	m.wg.Add(1)
	m.mu.Unlock()

	m.broadcast(RunStartedEvent{Request: req})

	go func() {
		defer m.wg.Done()

		res, err := m.pipeline.Run(m.ctx, req)

		m.mu.Lock()
		m.running = false
		if err == nil {
			m.latest = res
		}
		m.mu.Unlock()

		if err != nil {
			logger.Error("Run failed", "error", err)
			m.broadcast(ErrorEvent{Service: "pipeline", Error: err})
			return
		}
		m.broadcast(RunCompletedEvent{Result: res})
	}()
	return true
}

// Export writes the report files of the latest result.
func (m *Manager) Export() ([]string, error) {
	res := m.Latest()
	if res == nil {
		return nil, errors.New("no report to export yet")
	}

	paths, err := m.pipeline.Export(res)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "export", Error: err})
		return nil, err
	}
	m.broadcast(ExportedEvent{RunID: res.ID, Paths: paths})
	return paths, nil
}

// Watch re-runs the pipeline whenever the roster file changes.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory so editors that replace the file are caught
	dir := filepath.Dir(m.request.RosterPath)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return watcher.Close()
	}
	m.watcher = watcher
	m.wg.Add(1)
	m.mu.Unlock()

	go m.watchLoop(watcher)
	return nil
}

// watchLoop handles file system events with debouncing.
func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	defer m.wg.Done()
	name := filepath.Base(m.request.RosterPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			m.mu.Lock()
			if m.timer != nil {
				m.timer.Stop()
			}
			m.timer = time.AfterFunc(m.debounce, func() {
				logger.Info("Roster changed", "path", m.request.RosterPath)
				m.broadcast(RosterChangedEvent{Path: m.request.RosterPath})
				m.Refresh()
			})
			m.mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.broadcast(ErrorEvent{Service: "watch", Error: err})

		case <-m.ctx.Done():
			return
		}
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close cancels in-flight runs, stops watching and closes all subscribers.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
	}
	watcher := m.watcher
	m.mu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Close()
	}
	m.wg.Wait()

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	return err
}
