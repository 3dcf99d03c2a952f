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

package ops

import (
	"io"
	"testing"

	"github.com/hspdev/hsp/internal/tile"
)

func TestEmptyComboIsIdentity(t *testing.T) {
	combo := NewCombo[*tile.Tile[uint16]]()
	in := tile.NewFromData(1, 3, []uint16{1, 2, 3})
	out, err := combo.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %s", err.Error())
	}
	if out != in {
		t.Errorf("empty combo did not return its input unchanged")
	}
}

func TestComboAppliesInOrder(t *testing.T) {
	add := func(n uint16) Operator[*tile.Tile[uint16]] {
		return OpFunc[*tile.Tile[uint16]](func(m *tile.Tile[uint16]) (*tile.Tile[uint16], error) {
			r := m.Clone()
			for i := range r.Data {
				r.Data[i] = r.Data[i]*10 + n
			}
			return r, nil
		})
	}
	combo := NewCombo[*tile.Tile[uint16]]().Add(add(1)).Add(add(2))
	out, err := combo.Apply(tile.NewFromData(1, 1, []uint16{0}))
	if err != nil {
		t.Fatalf("Apply: %s", err.Error())
	}
	if out.Data[0] != 12 { // ((0*10+1)*10+2)
		t.Errorf("out=%d; want 12 (left-to-right order)", out.Data[0])
	}
}

func TestComboRemoveBack(t *testing.T) {
	id := OpFunc[int](func(v int) (int, error) { return v, nil })
	combo := NewCombo[int]().Add(id).Add(id)
	if combo.Len() != 2 {
		t.Fatalf("Len=%d; want 2", combo.Len())
	}
	combo.RemoveBack()
	if combo.Len() != 1 || combo.Empty() {
		t.Errorf("after RemoveBack: Len=%d Empty=%v", combo.Len(), combo.Empty())
	}
	combo.RemoveBack()
	combo.RemoveBack() // removing from empty combo is a no-op
	if !combo.Empty() {
		t.Errorf("combo not empty after removals")
	}
}

func TestContextCancellation(t *testing.T) {
	c := NewContext(io.Discard)
	if c.Cancelled() {
		t.Fatalf("fresh context already cancelled")
	}
	c.Cancel()
	if !c.Cancelled() {
		t.Errorf("Cancel not observed")
	}
	if c.MaxThreads < 1 {
		t.Errorf("MaxThreads=%d; want >=1", c.MaxThreads)
	}
}
