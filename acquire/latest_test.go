package acquire_test

import (
	"sync"
	"testing"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/camera"
)

func frame(seq uint64) *camera.Frame {
	return &camera.Frame{Seq: seq, Width: 1, Height: 1, Pix: []uint16{uint16(seq)}}
}

func TestLatestEmpty(t *testing.T) {
	var l acquire.Latest
	if f, ok := l.TryTake(); ok || f != nil {
		t.Error("empty slot should report not ok")
	}
}

func TestLatestWins(t *testing.T) {
	var l acquire.Latest
	for seq := uint64(1); seq <= 5; seq++ {
		l.Push(frame(seq))
	}
	f, ok := l.TryTake()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Seq != 5 {
		t.Errorf("only the most recently pushed frame should be retrievable, got seq %d", f.Seq)
	}
	if _, ok := l.TryTake(); ok {
		t.Error("slot should be empty after take")
	}
	pushed, dropped := l.Stats()
	if pushed != 5 || dropped != 4 {
		t.Errorf("expected 5 pushed / 4 dropped, got %d / %d", pushed, dropped)
	}
}

func TestLatestDropsAffectDeliveryNotNumbering(t *testing.T) {
	var l acquire.Latest
	var got []uint64
	for seq := uint64(1); seq <= 10; seq++ {
		l.Push(frame(seq))
		if seq%3 == 0 {
			if f, ok := l.TryTake(); ok {
				got = append(got, f.Seq)
			}
		}
	}
	// delivered subsequence keeps the producer's numbering
	want := []uint64{3, 6, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames delivered, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivered frame %d: expected seq %d, got %d", i, want[i], got[i])
		}
	}
}

func TestLatestConcurrent(t *testing.T) {
	var l acquire.Latest
	const n = 1000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for seq := uint64(1); seq <= n; seq++ {
			l.Push(frame(seq))
		}
	}()
	var last uint64
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if f, ok := l.TryTake(); ok {
				if f.Seq <= last {
					t.Errorf("frames must arrive in order: %d after %d", f.Seq, last)
					return
				}
				last = f.Seq
			}
		}
	}()
	wg.Wait()
}
