package usage

import "testing"

func TestRecordTurnDelta(t *testing.T) {
	a := NewAccountant()

	stats := a.RecordTurn(Usage{Total: 100, Input: 60, Output: 40})
	if stats.TurnNumber != 1 {
		t.Errorf("TurnNumber = %d, want 1", stats.TurnNumber)
	}
	if stats.ThisTurn.Total != 100 {
		t.Errorf("first turn total = %d, want 100", stats.ThisTurn.Total)
	}

	stats = a.RecordTurn(Usage{Total: 150, Input: 90, Output: 60})
	if stats.ThisTurn.Total != 50 {
		t.Errorf("second turn total = %d, want 50", stats.ThisTurn.Total)
	}
	if stats.ThisTurn.Input != 30 || stats.ThisTurn.Output != 20 {
		t.Errorf("second turn input/output = %d/%d, want 30/20", stats.ThisTurn.Input, stats.ThisTurn.Output)
	}
	if stats.Total.Total != 150 {
		t.Errorf("cumulative total = %d, want 150", stats.Total.Total)
	}
}

func TestRecordTurnNegativeDeltaUnclamped(t *testing.T) {
	a := NewAccountant()
	a.RecordTurn(Usage{Total: 150})

	stats := a.RecordTurn(Usage{Total: 140})
	if stats.ThisTurn.Total != -10 {
		t.Errorf("delta after counter regression = %d, want -10", stats.ThisTurn.Total)
	}
	if stats.TurnNumber != 2 {
		t.Errorf("TurnNumber = %d, want 2", stats.TurnNumber)
	}
}

func TestRecordTurnAllFields(t *testing.T) {
	a := NewAccountant()
	a.RecordTurn(Usage{Total: 10, Input: 6, Output: 4, InputText: 2, InputAudio: 4, OutputText: 1, OutputAudio: 3, Cached: 1})

	stats := a.RecordTurn(Usage{Total: 25, Input: 14, Output: 11, InputText: 5, InputAudio: 9, OutputText: 4, OutputAudio: 7, Cached: 2})
	want := Usage{Total: 15, Input: 8, Output: 7, InputText: 3, InputAudio: 5, OutputText: 3, OutputAudio: 4, Cached: 1}
	if stats.ThisTurn != want {
		t.Errorf("ThisTurn = %+v, want %+v", stats.ThisTurn, want)
	}
}

func TestReset(t *testing.T) {
	a := NewAccountant()
	a.RecordTurn(Usage{Total: 100})
	a.Reset()

	if a.TurnNumber() != 0 {
		t.Errorf("TurnNumber after reset = %d, want 0", a.TurnNumber())
	}
	stats := a.RecordTurn(Usage{Total: 30})
	if stats.ThisTurn.Total != 30 || stats.TurnNumber != 1 {
		t.Errorf("after reset: delta=%d turn=%d, want 30/1", stats.ThisTurn.Total, stats.TurnNumber)
	}
}
