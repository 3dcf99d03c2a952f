// Copyright (C) 2024 The hsp authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package ops defines the unary image-operator algebra the correction
// pipeline is composed from, and the execution context shared by a batch.
package ops

import (
	"io"
	"runtime"
	"sync/atomic"

	"github.com/pbnjay/memory"
)

// An execution context for a correction batch.
type Context struct {
	Log        io.Writer
	MemoryMB   int // memory.TotalMemory()/1024/1024
	MaxThreads int
	cancel     atomic.Bool
}

func NewContext(log io.Writer) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	return &Context{
		Log:        log,
		MemoryMB:   memoryMB,
		MaxThreads: runtime.GOMAXPROCS(0),
	}
}

// Cancel requests a cooperative stop. Workers observe it between frames;
// in-flight frames complete.
func (c *Context) Cancel()         { c.cancel.Store(true) }
func (c *Context) Cancelled() bool { return c.cancel.Load() }

// Operator is a unary image operation over a tile of element type T,
// carrying its coefficients loaded at construction time.
type Operator[T any] interface {
	Apply(t T) (T, error)
}

// OpFunc adapts a plain function to an Operator.
type OpFunc[T any] func(t T) (T, error)

func (f OpFunc[T]) Apply(t T) (T, error) { return f(t) }

// Combo applies a sequence of operators of identical tile type in the
// order they were added. An empty combo is the identity.
type Combo[T any] struct {
	steps []Operator[T]
}

func NewCombo[T any](steps ...Operator[T]) *Combo[T] {
	return &Combo[T]{steps: steps}
}

// Add appends an operator and returns the combo for chaining.
func (c *Combo[T]) Add(op Operator[T]) *Combo[T] {
	c.steps = append(c.steps, op)
	return c
}

// RemoveBack drops the most recently added operator.
func (c *Combo[T]) RemoveBack() *Combo[T] {
	if n := len(c.steps); n > 0 {
		c.steps = c.steps[:n-1]
	}
	return c
}

func (c *Combo[T]) Len() int    { return len(c.steps) }
func (c *Combo[T]) Empty() bool { return len(c.steps) == 0 }

func (c *Combo[T]) Apply(t T) (T, error) {
	var err error
	for _, step := range c.steps {
		if t, err = step.Apply(t); err != nil {
			return t, err
		}
	}
	return t, nil
}

// BinaryOperator takes a tile plus an index argument (the band number for
// spatial defective-pixel repair). Deliberately not composable through
// Combo; callers pair it with a counting index via Transform2.
type BinaryOperator[T any] interface {
	ApplyIndexed(t T, idx int) (T, error)
}

// BinFunc adapts a plain function to a BinaryOperator.
type BinFunc[T any] func(t T, idx int) (T, error)

func (f BinFunc[T]) ApplyIndexed(t T, idx int) (T, error) { return f(t, idx) }
