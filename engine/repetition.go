package engine

// RepetitionOutcome classifies the game effect of recording a position
// key.
type RepetitionOutcome uint8

const (
	RepetitionNone RepetitionOutcome = iota
	RepetitionDraw
	RepetitionPerpetual // offending side loses; see Offender
)

// RepetitionEntry is one recorded post-move snapshot: the normalized
// position key plus the move that produced it.
type RepetitionEntry struct {
	Key        string `json:"key"`
	Side       Side   `json:"side"`
	GivesCheck bool   `json:"givesCheck"`
}

// RepetitionTracker accumulates normalized position keys after every
// move. The fourth occurrence of a key ends the game: a perpetual-check
// loss when every move by one side since the 4th-from-last occurrence
// delivered check, a plain sennichite draw otherwise.
type RepetitionTracker struct {
	Entries []RepetitionEntry `json:"entries"`
	Counts  map[string]int    `json:"counts"`
}

// NewRepetitionTracker returns an empty tracker.
func NewRepetitionTracker() *RepetitionTracker {
	return &RepetitionTracker{Counts: make(map[string]int)}
}

// Record appends the position key produced by the given move and
// returns the repetition classification. Offender is meaningful only
// for RepetitionPerpetual.
func (t *RepetitionTracker) Record(key string, side Side, givesCheck bool) (RepetitionOutcome, Side) {
	if t.Counts == nil {
		t.Counts = make(map[string]int)
	}
	t.Entries = append(t.Entries, RepetitionEntry{Key: key, Side: side, GivesCheck: givesCheck})
	t.Counts[key]++
	if t.Counts[key] < 4 {
		return RepetitionNone, 0
	}

	// Locate the 4th-from-last occurrence of the key; the repetition
	// window is everything after it.
	seen := 0
	windowStart := -1
	for i := len(t.Entries) - 1; i >= 0; i-- {
		if t.Entries[i].Key == key {
			seen++
			if seen == 4 {
				windowStart = i
				break
			}
		}
	}
	if windowStart < 0 {
		return RepetitionDraw, 0
	}

	for _, offender := range []Side{Sente, Gote} {
		allChecks := false
		for i := windowStart + 1; i < len(t.Entries); i++ {
			e := t.Entries[i]
			if e.Side != offender {
				continue
			}
			if !e.GivesCheck {
				allChecks = false
				break
			}
			allChecks = true
		}
		if allChecks {
			return RepetitionPerpetual, offender
		}
	}
	return RepetitionDraw, 0
}
