package engine

import "testing"

func TestRepetitionDrawOnFourthOccurrence(t *testing.T) {
	tracker := NewRepetitionTracker()

	// Both sides shuffle between two positions; nobody is checking.
	keys := []string{"A", "B", "A", "B", "A", "B", "A"}
	sides := []Side{Sente, Gote, Sente, Gote, Sente, Gote, Sente}
	for i := range keys {
		outcome, _ := tracker.Record(keys[i], sides[i], false)
		if i < len(keys)-1 {
			if outcome != RepetitionNone {
				t.Fatalf("entry %d: outcome = %v, want none", i, outcome)
			}
			continue
		}
		if outcome != RepetitionDraw {
			t.Fatalf("fourth occurrence: outcome = %v, want draw", outcome)
		}
	}
}

func TestRepetitionPerpetualCheckLoss(t *testing.T) {
	tracker := NewRepetitionTracker()

	// Gote chases the sente king: every gote move in the repetition
	// window gives check, so gote loses on the fourth occurrence.
	type step struct {
		key        string
		side       Side
		givesCheck bool
	}
	steps := []step{
		{"A", Gote, true}, {"B", Sente, false},
		{"A", Gote, true}, {"B", Sente, false},
		{"A", Gote, true}, {"B", Sente, false},
		{"A", Gote, true},
	}
	for i, s := range steps[:len(steps)-1] {
		if outcome, _ := tracker.Record(s.key, s.side, s.givesCheck); outcome != RepetitionNone {
			t.Fatalf("entry %d: outcome = %v, want none", i, outcome)
		}
	}
	last := steps[len(steps)-1]
	outcome, offender := tracker.Record(last.key, last.side, last.givesCheck)
	if outcome != RepetitionPerpetual {
		t.Fatalf("outcome = %v, want perpetual", outcome)
	}
	if offender != Gote {
		t.Errorf("offender = %v, want gote", offender)
	}
}

func TestRepetitionMixedChecksIsDraw(t *testing.T) {
	tracker := NewRepetitionTracker()

	// One non-checking move inside the window breaks the perpetual.
	type step struct {
		key        string
		side       Side
		givesCheck bool
	}
	steps := []step{
		{"A", Gote, true}, {"B", Sente, false},
		{"A", Gote, false}, {"B", Sente, false},
		{"A", Gote, true}, {"B", Sente, false},
		{"A", Gote, true},
	}
	var outcome RepetitionOutcome
	for _, s := range steps {
		outcome, _ = tracker.Record(s.key, s.side, s.givesCheck)
	}
	if outcome != RepetitionDraw {
		t.Errorf("outcome = %v, want draw", outcome)
	}
}

func TestRepetitionKeyFromApply(t *testing.T) {
	// Two king shuffles return to the same normalized key even though
	// the ply counter advances.
	pos := StartPosition()
	startKey := pos.Key()

	for _, usi := range []string{"5i4h", "5a4b", "4h5i", "4b5a"} {
		pos, _ = mustApply(t, pos, usi)
	}
	if pos.Key() != startKey {
		t.Errorf("key after shuffle = %q, want %q", pos.Key(), startKey)
	}
	if pos.Ply() == 1 {
		t.Error("ply should have advanced")
	}
}
