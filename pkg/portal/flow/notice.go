package flow

// NoticeKind selects how a notice is styled.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a transient message shown once on the next page render.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// Notify queues a notice.
func (s *State) Notify(kind NoticeKind, text string) {
	s.Notices = append(s.Notices, Notice{Kind: kind, Text: text})
}

// TakeNotices returns queued notices and clears the queue.
func (s *State) TakeNotices() []Notice {
	n := s.Notices
	s.Notices = nil
	return n
}
