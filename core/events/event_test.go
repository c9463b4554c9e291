package events

import (
	"testing"

	"bondfarm/crypto"
)

type plainEvent struct{}

func (plainEvent) EventType() string { return "plain" }

func TestBufferFlushForwardsInOrder(t *testing.T) {
	owner := crypto.DeriveAddress([]byte("owner"))
	buf := &Buffer{}
	buf.Emit(FarmDeposit{Asset: "lp", Owner: owner, Amount: 5})
	buf.Emit(nil)
	buf.Emit(FarmHarvest{Asset: "lp", Owner: owner, Amount: 7})

	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 buffered events, got %d", got)
	}
	rec := NewRecorder(0)
	buf.Flush(rec)
	if got := len(buf.Events()); got != 0 {
		t.Fatalf("flush must empty the buffer, %d left", got)
	}
	recent := rec.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 recorded events, got %d", len(recent))
	}
	if recent[0].Type != TypeFarmDeposit || recent[1].Type != TypeFarmHarvest {
		t.Fatalf("unexpected order %s, %s", recent[0].Type, recent[1].Type)
	}
	if recent[0].Attributes["asset"] != "LP" || recent[0].Attributes["amount"] != "5" {
		t.Fatalf("unexpected attributes %+v", recent[0].Attributes)
	}
}

func TestDiscardedBufferEmitsNothing(t *testing.T) {
	rec := NewRecorder(0)
	buf := &Buffer{}
	buf.Emit(Transfer{Asset: "usdc", Amount: 1})
	buf = nil
	buf.Flush(rec)
	if got := len(rec.Recent()); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
}

func TestRecorderKeepsMostRecent(t *testing.T) {
	rec := NewRecorder(2)
	rec.Emit(plainEvent{})
	for i := uint64(1); i <= 3; i++ {
		rec.Emit(Transfer{Asset: "usdc", Amount: i})
	}
	recent := rec.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].Attributes["amount"] != "2" || recent[1].Attributes["amount"] != "3" {
		t.Fatalf("expected the two newest transfers, got %+v", recent)
	}
}

func TestFanoutSkipsNil(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	Fanout{a, nil, b}.Emit(Transfer{Asset: "usdc", Amount: 1})
	if len(a.Recent()) != 1 || len(b.Recent()) != 1 {
		t.Fatalf("expected both recorders to receive the event")
	}
}
