package notify

import (
	"context"
	"sync"
)

// VisualCall records one ShowVisual invocation
type VisualCall struct {
	Title   string
	Body    string
	Tag     string
	Urgency Urgency
}

// SpeakCall records one Speak invocation
type SpeakCall struct {
	Text    string
	Urgency Urgency
}

// Mock is a recording notifier for tests. Failures can be injected per
// channel.
type Mock struct {
	mu sync.Mutex

	Visuals []VisualCall
	Speaks  []SpeakCall
	Tones   []Urgency

	VisualErr error
	SpeakErr  error
	ToneErr   error
}

// NewMock creates an empty recording notifier
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) ShowVisual(ctx context.Context, title, body, tag string, urgency Urgency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VisualErr != nil {
		return m.VisualErr
	}
	m.Visuals = append(m.Visuals, VisualCall{Title: title, Body: body, Tag: tag, Urgency: urgency})
	return nil
}

func (m *Mock) Speak(ctx context.Context, text string, urgency Urgency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	m.Speaks = append(m.Speaks, SpeakCall{Text: text, Urgency: urgency})
	return nil
}

func (m *Mock) PlayTone(ctx context.Context, urgency Urgency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ToneErr != nil {
		return m.ToneErr
	}
	m.Tones = append(m.Tones, urgency)
	return nil
}

// VisualCount returns the number of visual deliveries
func (m *Mock) VisualCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Visuals)
}

// SpeakCount returns the number of voice deliveries
func (m *Mock) SpeakCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Speaks)
}
