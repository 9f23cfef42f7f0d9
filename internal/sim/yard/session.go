package yard

import "stackyard.dev/internal/protocol"

// Session is one connected collaborator client. Drivers submit
// requests; viewers only receive STATE. All fields are owned by the
// yard loop goroutine.
type Session struct {
	ID   string
	Name string
	Role string

	Out chan []byte

	Events []protocol.Event
}

func (s *Session) AddEvent(e protocol.Event) {
	if s == nil || e == nil {
		return
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > 256 {
		s.Events = s.Events[len(s.Events)-256:]
	}
}

// TakeEvents drains the pending queue.
func (s *Session) TakeEvents() []protocol.Event {
	if s == nil || len(s.Events) == 0 {
		return []protocol.Event{}
	}
	ev := s.Events
	s.Events = nil
	return ev
}
