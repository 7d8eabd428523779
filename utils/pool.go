package utils

import (
	"bytes"
	"strings"
	"sync"
)

// Pool a typed wrapper of [sync.Pool], reset is applied before an item goes back.
type Pool[T any] struct {
	p     sync.Pool
	reset func(T) T
}

func NewPool[T any](ctor func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{p: sync.Pool{New: func() any { return ctor() }}, reset: reset}
}

func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}
func (p *Pool[T]) Put(t T) {
	p.p.Put(p.reset(t))
}

// BufferPool pool of [bytes.Buffer] used to render SQL fragments.
type BufferPool struct {
	*Pool[*bytes.Buffer]
}

func NewByteBufferPool() BufferPool {
	return BufferPool{NewPool(func() *bytes.Buffer {
		return new(bytes.Buffer)
	}, func(buffer *bytes.Buffer) *bytes.Buffer {
		buffer.Reset()
		return buffer
	})}
}

// Render writes with a pooled buffer and returns a detached copy of its content.
func (p BufferPool) Render(write func(b *bytes.Buffer)) string {
	b := p.Get()
	defer p.Put(b)
	write(b)
	return strings.Clone(b.String())
}

// RenderErr same as Render but aborts on the first error, no partial output is returned.
func (p BufferPool) RenderErr(write func(b *bytes.Buffer) error) (string, error) {
	b := p.Get()
	defer p.Put(b)
	if err := write(b); err != nil {
		return "", err
	}
	return strings.Clone(b.String()), nil
}
