package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"bloomo-gateway/internal/model"
	"bloomo-gateway/pkg/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store down")

type fakeConvRepo struct {
	mu        sync.Mutex
	convs     map[string]*model.Conversation
	createErr error
	findErr   error
	touchErr  error
	touches   int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: map[string]*model.Conversation{}}
}

func (r *fakeConvRepo) Create(_ context.Context, conv *model.Conversation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if conv.SessionKey != nil {
		for _, c := range r.convs {
			if c.SessionKey != nil && *c.SessionKey == *conv.SessionKey {
				*conv = *c
				return false, nil
			}
		}
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now()
	conv.CreatedAt, conv.LastActive = now, now
	cp := *conv
	r.convs[conv.ID] = &cp
	return true, nil
}

func (r *fakeConvRepo) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConvRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touchErr != nil {
		return r.touchErr
	}
	r.touches++
	if c, ok := r.convs[id]; ok && c.LastActive.Before(at) {
		c.LastActive = at
	}
	return nil
}

func (r *fakeConvRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

type fakeMsgRepo struct {
	mu        sync.Mutex
	msgs      []model.Message
	nextID    uint
	createErr error
	findErr   error
}

func (r *fakeMsgRepo) Create(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	msg.ID = r.nextID
	msg.CreatedAt = time.Now()
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *fakeMsgRepo) FindRecent(_ context.Context, convID string, limit int, excludeID uint) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []model.Message
	for _, m := range r.msgs {
		if m.ConversationID == convID && m.ID != excludeID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit <= 0 {
		return []model.Message{}, nil
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMsgRepo) byRole(convID, role string) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, m := range r.msgs {
		if m.ConversationID == convID && m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeMsgRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type fakeLeadRepo struct {
	leads   []model.Lead
	findErr error
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *model.Lead) error {
	lead.ID = uint(len(r.leads) + 1)
	r.leads = append(r.leads, *lead)
	return nil
}

func (r *fakeLeadRepo) FindLatestByEmail(_ context.Context, email string) (*model.Lead, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for i := len(r.leads) - 1; i >= 0; i-- {
		if r.leads[i].Email == email {
			l := r.leads[i]
			return &l, nil
		}
	}
	return nil, nil
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []model.AnalyticsEvent
	err    error
}

func (a *fakeAnalytics) Emit(_ context.Context, event *model.AnalyticsEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, *event)
	return nil
}

func (a *fakeAnalytics) kinds() []model.EventKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.EventKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}

func (a *fakeAnalytics) byKind(kind model.EventKind) []model.AnalyticsEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.AnalyticsEvent
	for _, e := range a.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeSessions struct {
	mu     sync.Mutex
	m      map[string]string
	getErr error
}

func (s *fakeSessions) GetConversationID(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.m[key], nil
}

func (s *fakeSessions) SetConversationID(_ context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		s.m[key] = id
	}
	return nil
}

// scriptedStream 依次返回 fragments，之后返回 err（为 nil 时返回 io.EOF）。
type scriptedStream struct {
	mu        sync.Mutex
	fragments []string
	err       error
	pos       int
	recvs     int
	closed    bool
}

func (s *scriptedStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recvs++
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeLLM struct {
	mu       sync.Mutex
	stream   *scriptedStream
	openErr  error
	requests []llm.ChatRequest
}

func (c *fakeLLM) StreamChat(_ context.Context, req llm.ChatRequest) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func (c *fakeLLM) lastRequest() llm.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

// recordingWriter 记录写入的片段，failAfter>0 时第 failAfter+1 次写入失败。
type recordingWriter struct {
	fragments []string
	failAfter int
	closed    bool
}

func (w *recordingWriter) WriteFragment(f string) error {
	if w.failAfter > 0 && len(w.fragments) >= w.failAfter {
		return errors.New("broken pipe")
	}
	w.fragments = append(w.fragments, f)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func (w *recordingWriter) text() string {
	return strings.Join(w.fragments, "")
}
