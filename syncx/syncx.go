// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package syncx contains useful synchronization primitives.
package syncx

import "sync"

// Protect wraps T into [Protected].
func Protect[T any](val T) *Protected[T] { return &Protected[T]{val: val} }

// Protected provides synchronized access to a value of type T.
// It should not be copied.
type Protected[T any] struct {
	mu  sync.RWMutex
	val T
}

// ReadAccess executes f with the value under a read lock.
func (p *Protected[T]) ReadAccess(f func(T)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f(p.val)
}

// WriteAccess executes f with a pointer to the value under a write lock, so
// f may replace the value entirely.
func (p *Protected[T]) WriteAccess(f func(*T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(&p.val)
}

// Lazy represents a lazily computed value.
type Lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Get returns T, calling f to compute it, if necessary.
func (l *Lazy[T]) Get(f func() T) T {
	l.once.Do(func() { l.val = f() })
	return l.val
}

// GetErr returns T and an error, calling f to compute them, if necessary.
func (l *Lazy[T]) GetErr(f func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = f() })
	return l.val, l.err
}

// LimitedWaitGroup is a [sync.WaitGroup] that limits the number of concurrently
// working goroutines.
type LimitedWaitGroup struct {
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewLimitedWaitGroup returns a new [LimitedWaitGroup].
func NewLimitedWaitGroup(limit int) *LimitedWaitGroup {
	return &LimitedWaitGroup{workers: make(chan struct{}, limit)}
}

// Go starts a new goroutine that executes f.
// It blocks while the concurrency limit is reached.
func (lwg *LimitedWaitGroup) Go(f func()) {
	lwg.workers <- struct{}{}
	lwg.wg.Add(1)
	go func() {
		defer func() {
			<-lwg.workers
			lwg.wg.Done()
		}()
		f()
	}()
}

// Wait blocks until all goroutines started with Go have returned.
func (lwg *LimitedWaitGroup) Wait() { lwg.wg.Wait() }

// Fanout delivers published values to every subscriber.
//
// Publishing never blocks: a subscriber whose buffer is full misses the value.
// The zero value is ready to use.
type Fanout[T any] struct {
	mu   sync.RWMutex
	subs map[chan T]struct{}
}

// Subscribe registers a new subscriber with a buffer of size buf. The returned
// cancel function unregisters it and closes the channel.
func (f *Fanout[T]) Subscribe(buf int) (ch <-chan T, cancel func()) {
	c := make(chan T, buf)
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[chan T]struct{})
	}
	f.subs[c] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, c)
			f.mu.Unlock()
			close(c)
		})
	}
}

// Publish sends v to all subscribers and reports how many received it.
func (f *Fanout[T]) Publish(v T) (delivered int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.subs {
		select {
		case c <- v:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of subscribers.
func (f *Fanout[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
