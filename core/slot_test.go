package core

import (
	"testing"
	"time"
)

func testSlotService() *SlotService {
	return NewSlotService(SlotConfig{
		EpochTime:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SlotIntervalSeconds:  10,
		ActiveDelegatesCount: 4,
	}, 4)
}

func TestGetSlotNumber(t *testing.T) {
	s := testSlotService()
	cases := []struct {
		name string
		t    time.Time
		want uint64
	}{
		{"epoch instant", s.cfg.EpochTime, 0},
		{"one slot in", s.cfg.EpochTime.Add(10 * time.Second), 1},
		{"mid slot", s.cfg.EpochTime.Add(15 * time.Second), 1},
		{"before epoch", s.cfg.EpochTime.Add(-time.Second), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.GetSlotNumber(tc.t); got != tc.want {
				t.Fatalf("GetSlotNumber(%v) = %d, want %d", tc.t, got, tc.want)
			}
		})
	}
}

func TestCalcRound(t *testing.T) {
	s := testSlotService()
	cases := []struct {
		height uint64
		want   uint64
	}{
		{1, 1}, {4, 1}, {5, 2}, {8, 2}, {9, 3},
	}
	for _, tc := range cases {
		if got := s.CalcRound(tc.height); got != tc.want {
			t.Errorf("CalcRound(%d) = %d, want %d", tc.height, got, tc.want)
		}
	}
}

func TestGenerateDeterministicAcrossNodes(t *testing.T) {
	delegates := []PublicKey{{1}, {2}, {3}, {4}}

	a := testSlotService()
	b := testSlotService()

	ra := a.Generate(5, 20, 16, delegates)
	rb := b.Generate(5, 20, 16, delegates)

	for _, d := range delegates {
		sa, ok := ra.GeneratorSlot(d)
		if !ok {
			t.Fatalf("delegate %v missing from round a", d)
		}
		sb, _ := rb.GeneratorSlot(d)
		if sa != sb {
			t.Fatalf("delegate %v assigned slot %d on node a but %d on node b", d, sa, sb)
		}
	}
}

func TestGenerateIsCached(t *testing.T) {
	s := testSlotService()
	delegates := []PublicKey{{1}, {2}}

	first := s.Generate(1, 0, 0, delegates)
	// A different delegate set should not change the cached result for the
	// same round number: Generate memoizes by round number alone.
	second := s.Generate(1, 0, 0, []PublicKey{{9}, {10}})

	if first != second {
		t.Fatal("Generate recomputed a round that should have been served from cache")
	}
}

func TestInvalidateRoundForcesRecompute(t *testing.T) {
	s := testSlotService()
	delegates := []PublicKey{{1}, {2}}

	first := s.Generate(1, 0, 0, delegates)
	s.InvalidateRound(1)
	second := s.Generate(1, 0, 0, delegates)

	if first == second {
		t.Fatal("expected InvalidateRound to force a new *Round allocation")
	}
	// but deterministic shuffling means the schedule itself is identical.
	for _, d := range delegates {
		sa, _ := first.GeneratorSlot(d)
		sb, _ := second.GeneratorSlot(d)
		if sa != sb {
			t.Fatalf("recomputed schedule diverged for %v: %d vs %d", d, sa, sb)
		}
	}
}
