package service

import (
	"fmt"
	"sync"
)

// NoticeService records user-visible notices and fans them out on the bus.
type NoticeService struct {
	mu      sync.RWMutex
	nextID  int
	notices []Notice
	bus     *EventBus
}

// NewNoticeService creates a notice service. The bus may be nil in tests.
func NewNoticeService(bus *EventBus) *NoticeService {
	return &NoticeService{nextID: 1, bus: bus}
}

// Publish records a notice and broadcasts it. Toasts auto-dismiss client
// side and are not retained.
func (s *NoticeService) Publish(severity Severity, message string) Notice {
	s.mu.Lock()
	n := Notice{
		ID:          s.nextID,
		Severity:    severity,
		Message:     message,
		Dismissible: severity != SeverityToast,
	}
	s.nextID++
	if severity != SeverityToast {
		s.notices = append(s.notices, n)
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(Event{Kind: "notice", Notice: n})
	}
	return n
}

// List returns the retained notices, oldest first.
func (s *NoticeService) List() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// Dismiss removes a notice by ID.
func (s *NoticeService) Dismiss(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("notice %d not found", id)
}
