// Package usage converts the gateway's cumulative token counters into
// per-turn deltas.
package usage

import "sync"

// Usage holds token counters, either cumulative since session start or as a
// single turn's delta depending on context.
type Usage struct {
	Total       int `json:"total"`
	Input       int `json:"input"`
	Output      int `json:"output"`
	InputText   int `json:"input_text"`
	InputAudio  int `json:"input_audio"`
	OutputText  int `json:"output_text"`
	OutputAudio int `json:"output_audio"`
	Cached      int `json:"cached"`
}

func (u Usage) sub(prev Usage) Usage {
	return Usage{
		Total:       u.Total - prev.Total,
		Input:       u.Input - prev.Input,
		Output:      u.Output - prev.Output,
		InputText:   u.InputText - prev.InputText,
		InputAudio:  u.InputAudio - prev.InputAudio,
		OutputText:  u.OutputText - prev.OutputText,
		OutputAudio: u.OutputAudio - prev.OutputAudio,
		Cached:      u.Cached - prev.Cached,
	}
}

// TurnStats describes one completed turn: its delta plus the cumulative
// totals after the turn.
type TurnStats struct {
	TurnNumber int   `json:"turn_number"`
	ThisTurn   Usage `json:"this_turn"`
	Total      Usage `json:"conversation_total"`
}

// Accountant tracks cumulative usage across a session and derives per-turn
// deltas. One Accountant per session.
type Accountant struct {
	mu         sync.Mutex
	totals     Usage
	turnNumber int
}

// NewAccountant returns an Accountant with zeroed counters.
func NewAccountant() *Accountant {
	return &Accountant{}
}

// RecordTurn subtracts the previously stored cumulative snapshot from
// cumulative, stores the new snapshot, and increments the turn number.
// Deltas are not clamped: a negative delta signals an upstream counter
// anomaly and is surfaced as-is.
func (a *Accountant) RecordTurn(cumulative Usage) TurnStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	delta := cumulative.sub(a.totals)
	a.totals = cumulative
	a.turnNumber++

	return TurnStats{
		TurnNumber: a.turnNumber,
		ThisTurn:   delta,
		Total:      a.totals,
	}
}

// TurnNumber returns the number of turns recorded so far.
func (a *Accountant) TurnNumber() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.turnNumber
}

// Totals returns the current cumulative counters.
func (a *Accountant) Totals() Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// Reset zeroes all counters for a fresh session.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals = Usage{}
	a.turnNumber = 0
}
