// Package editor holds the editing sessions over a cv.Document: the creation
// wizard, the tabbed in-place editor and the section editor both of them share.
//
// A session owns its Document value. Every mutation replaces the value with a
// new copy and then notifies subscribers with it, so no two sessions ever alias
// the same Document.
package editor

import (
	"errors"
	"sync"

	"cvbuilder/internal/cv"
)

var (
	ErrSessionClosed = errors.New("editor session closed")
	ErrNotLoaded     = errors.New("document not loaded")
	ErrBusy          = errors.New("another operation is in progress")
	ErrNotFinalStep  = errors.New("submit is only available on the final step")
)

// Listener 在文档变更后收到新的文档值。
type Listener func(cv.Document)

type docSession struct {
	mu        sync.Mutex
	doc       cv.Document
	closed    bool
	listeners map[int]Listener
	nextID    int
}

func newDocSession(doc cv.Document) docSession {
	return docSession{doc: doc, listeners: map[int]Listener{}}
}

// Document 返回当前文档的副本。
func (s *docSession) Document() cv.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Subscribe 注册变更监听，返回取消函数。
func (s *docSession) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// applyLocked 在持有 s.mu 时调用。返回的 notify 必须在释放锁之后执行。
func (s *docSession) applyLocked(fn func(cv.Document) (cv.Document, error)) (notify func(), err error) {
	noop := func() {}
	if s.closed {
		return noop, ErrSessionClosed
	}
	next, err := fn(s.doc)
	if err != nil {
		return noop, err
	}
	s.doc = next

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return func() {
		for _, l := range listeners {
			l(next.Clone())
		}
	}, nil
}

// SectionEditor is the add/remove/update controller for one repeatable section.
type SectionEditor struct {
	section cv.Section
	owner   mutator
}

type mutator interface {
	mutate(fn func(cv.Document) (cv.Document, error)) error
	Document() cv.Document
}

// Section 返回分区名。
func (e *SectionEditor) Section() cv.Section { return e.section }

// Fields 返回该分区记录的字段名。
func (e *SectionEditor) Fields() []string { return e.section.Fields() }

// Items 返回当前记录的副本。
func (e *SectionEditor) Items() []cv.Record {
	return e.owner.Document().Items(e.section)
}

// Add 追加一条空记录并返回新长度。
func (e *SectionEditor) Add() (int, error) {
	var n int
	err := e.owner.mutate(func(d cv.Document) (cv.Document, error) {
		next, length, err := d.AppendItem(e.section)
		n = length
		return next, err
	})
	return n, err
}

// RemoveAt 删除第 i 条记录。
func (e *SectionEditor) RemoveAt(i int) error {
	return e.owner.mutate(func(d cv.Document) (cv.Document, error) {
		return d.RemoveItem(e.section, i)
	})
}

// UpdateAt 修改第 i 条记录的一个字段。
func (e *SectionEditor) UpdateAt(i int, field, value string) error {
	return e.owner.mutate(func(d cv.Document) (cv.Document, error) {
		return d.SetItem(e.section, i, field, value)
	})
}

func userMessage(err error, fallback string) string {
	var verr *cv.ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
