package engine

// IsCheckmate reports whether side, to move in pos, is in check with no
// legal move across all board moves, promotion choices and drops.
func IsCheckmate(pos *Position, side Side) bool {
	return isCheckmateAtDepth(pos, side, 0)
}

func isCheckmateAtDepth(pos *Position, side Side, depth int) bool {
	if !pos.InCheck(side) {
		return false
	}
	return !hasLegalMove(pos, side, depth)
}

// HasLegalMove reports whether side has at least one legal move in pos.
func HasLegalMove(pos *Position, side Side) bool {
	return hasLegalMove(pos, side, 0)
}

func hasLegalMove(pos *Position, side Side, depth int) bool {
	// Board moves: every piece, every attacked destination, both
	// promotion choices where promotion is possible.
	for r := 1; r <= 9; r++ {
		for f := 1; f <= 9; f++ {
			piece := pos.board[r-1][f-1]
			if piece == nil || piece.Side != side {
				continue
			}
			from := Square{File: f, Rank: r}
			for _, to := range pos.AttackSquares(from, *piece) {
				move := Move{From: from, To: to}
				if _, _, err := applyAtDepth(pos, side, move, depth); err == nil {
					return true
				}
				if !piece.Promoted && piece.Kind.CanPromote() {
					move.Promote = true
					if _, _, err := applyAtDepth(pos, side, move, depth); err == nil {
						return true
					}
				}
			}
		}
	}
	// Drops: every kind in hand on every empty square.
	for _, kind := range handOrder {
		if pos.hands[side][kind] == 0 {
			continue
		}
		for r := 1; r <= 9; r++ {
			for f := 1; f <= 9; f++ {
				to := Square{File: f, Rank: r}
				if pos.PieceAt(to) != nil {
					continue
				}
				move := Move{IsDrop: true, Piece: kind, To: to}
				if _, _, err := applyAtDepth(pos, side, move, depth); err == nil {
					return true
				}
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Entering-king (27-point) rule
// ---------------------------------------------------------------------------

// EnteringStats holds the per-side inputs to the entering-king
// evaluation.
type EnteringStats struct {
	KingInCamp bool
	CampPieces int // non-king pieces inside the opponent camp
	CampPoints int // piece points in camp plus all pieces in hand
	TotalPoints int // piece points over the whole board plus hand
	InCheck    bool
}

// EnteringKingResult is the outcome of a declaration evaluation.
type EnteringKingResult struct {
	Decided bool
	Draw    bool
	Winner  Side
	Loser   Side
}

// enteringValue is the declaration point value of a piece: rook and
// bishop count 5 (promoted or not), the king 0, everything else 1.
func enteringValue(kind PieceKind) int {
	switch kind {
	case Rook, Bishop:
		return 5
	case King:
		return 0
	default:
		return 1
	}
}

// campRank reports whether rank is inside side's declaration camp, the
// opponent's three home ranks.
func campRank(side Side, rank int) bool {
	if side == Sente {
		return rank <= 3
	}
	return rank >= 7
}

// ComputeEnteringStats gathers the declaration inputs for side.
func ComputeEnteringStats(pos *Position, side Side) EnteringStats {
	var stats EnteringStats
	for r := 1; r <= 9; r++ {
		for f := 1; f <= 9; f++ {
			piece := pos.board[r-1][f-1]
			if piece == nil || piece.Side != side {
				continue
			}
			value := enteringValue(piece.Kind)
			stats.TotalPoints += value
			if campRank(side, r) {
				if piece.Kind == King {
					stats.KingInCamp = true
				} else {
					stats.CampPieces++
					stats.CampPoints += value
				}
			}
		}
	}
	for kind, count := range pos.hands[side] {
		stats.TotalPoints += enteringValue(kind) * count
		stats.CampPoints += enteringValue(kind) * count
	}
	stats.InCheck = pos.InCheck(side)
	return stats
}

// campThreshold is the declaration point bar: 28 for the side moving
// first, 27 for the other.
func campThreshold(side Side) int {
	if side == Sente {
		return 28
	}
	return 27
}

// EvaluateEnteringKing applies the 27-point rule to both sides. A side
// whose king is not in the camp never qualifies. When both sides
// qualify for a win, or both for a loss, the result is a draw.
func EvaluateEnteringKing(pos *Position) EnteringKingResult {
	type verdict uint8
	const (
		verdictNone verdict = iota
		verdictWin
		verdictLoss
	)
	classify := func(side Side) verdict {
		stats := ComputeEnteringStats(pos, side)
		if !stats.KingInCamp {
			return verdictNone
		}
		if stats.TotalPoints >= 44 {
			return verdictWin
		}
		if stats.TotalPoints < 10 {
			return verdictLoss
		}
		if stats.CampPieces >= 10 && !stats.InCheck && stats.CampPoints >= campThreshold(side) {
			return verdictWin
		}
		return verdictNone
	}

	sente, gote := classify(Sente), classify(Gote)
	switch {
	case sente == verdictWin && gote == verdictWin:
		return EnteringKingResult{Decided: true, Draw: true}
	case sente == verdictLoss && gote == verdictLoss:
		return EnteringKingResult{Decided: true, Draw: true}
	case sente == verdictWin:
		return EnteringKingResult{Decided: true, Winner: Sente, Loser: Gote}
	case gote == verdictWin:
		return EnteringKingResult{Decided: true, Winner: Gote, Loser: Sente}
	case sente == verdictLoss:
		return EnteringKingResult{Decided: true, Winner: Gote, Loser: Sente}
	case gote == verdictLoss:
		return EnteringKingResult{Decided: true, Winner: Sente, Loser: Gote}
	default:
		return EnteringKingResult{}
	}
}
