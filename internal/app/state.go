package app

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	NotificationSuccess NotificationType = iota
	NotificationError
	NotificationWarning
	NotificationInfo
	// NotificationLoading stays until cleared and is drawn with the spinner.
	NotificationLoading
)

// LoadingNotificationID is the fixed ID of the single loading notification.
const LoadingNotificationID = "__loading__"

const maxNotifications = 10

var notificationNames = [...]string{"success", "error", "warning", "info", "loading"}

func (n NotificationType) String() string {
	if n < 0 || int(n) >= len(notificationNames) {
		return "unknown"
	}
	return notificationNames[n]
}

// Notification is a toast shown over the viewer.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	// Duration of zero keeps the notification until removed.
	Duration time.Duration
}

// IsExpired reports whether a timed notification has run out.
func (n *Notification) IsExpired() bool {
	return n.Duration > 0 && time.Since(n.CreatedAt) > n.Duration
}

// toasts keeps at most maxNotifications, dropping the oldest.
type toasts struct {
	items []Notification
	seq   int
}

func (t *toasts) add(n Notification) string {
	if n.ID == "" {
		t.seq++
		n.ID = "n" + strconv.Itoa(t.seq)
	}
	t.items = append(t.items, n)
	if over := len(t.items) - maxNotifications; over > 0 {
		t.items = slices.Delete(t.items, 0, over)
	}
	return n.ID
}

func (t *toasts) remove(id string) {
	t.items = slices.DeleteFunc(t.items, func(n Notification) bool { return n.ID == id })
}

func (t *toasts) find(id string) int {
	return slices.IndexFunc(t.items, func(n Notification) bool { return n.ID == id })
}

func (t *toasts) active() []Notification {
	out := make([]Notification, 0, len(t.items))
	for _, n := range t.items {
		if !n.IsExpired() {
			out = append(out, n)
		}
	}
	return out
}

// State is what the viewer knows about the current report. It is shared by
// the model and its tabs.
type State struct {
	mu sync.RWMutex

	result      *services.Result
	exported    []string
	running     bool
	lastUpdated time.Time

	toasts toasts
}

func NewState() *State {
	return &State{}
}

// SetRunning marks a pipeline run as started or finished.
func (s *State) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetResult stores a finished run. Files exported for the previous result
// no longer describe it and are forgotten.
func (s *State) SetResult(res *services.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	s.running = false
	s.exported = nil
	s.lastUpdated = time.Now()
}

// Result returns the latest run result, or nil.
func (s *State) Result() *services.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// SetExported records the files written for the current result.
func (s *State) SetExported(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported = slices.Clone(paths)
}

func (s *State) Exported() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.exported)
}

// TimeSinceUpdate is zero until the first result arrives.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.lastUpdated)
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toasts.add(Notification{
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
}

func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts.remove(id)
}

// ClearExpiredNotifications drops timed notifications that ran out.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts.items = s.toasts.active()
}

// GetNotifications returns a copy of the notifications still showing.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toasts.active()
}

// SetLoadingNotification shows message in the loading notification,
// creating it if needed.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.toasts.find(LoadingNotificationID); i >= 0 {
		s.toasts.items[i].Message = message
		return
	}
	s.toasts.add(Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}
