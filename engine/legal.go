package engine

// maxMateDepth bounds the mutual recursion between drop-mate checking
// and checkmate detection: testing whether a pawn drop mates requires a
// checkmate search, whose own drop enumeration would recurse again.
// Past the bound, pawn drops are taken at face value.
const maxMateDepth = 2

// Apply validates move for side against pos and returns the successor
// position plus its MoveRecord. On a rule violation the error is an
// *IllegalMoveError carrying one of the eleven reasons; pos is never
// mutated. The caller commits the result.
func Apply(pos *Position, side Side, move Move) (*Position, MoveRecord, error) {
	return applyAtDepth(pos, side, move, 0)
}

func applyAtDepth(pos *Position, side Side, move Move, depth int) (*Position, MoveRecord, error) {
	if move.IsDrop {
		return applyDrop(pos, side, move, depth)
	}
	return applyBoardMove(pos, side, move)
}

func applyBoardMove(pos *Position, side Side, move Move) (*Position, MoveRecord, error) {
	if !move.From.Valid() || !move.To.Valid() {
		return nil, MoveRecord{}, illegal(ReasonOutOfBounds)
	}
	piece := pos.PieceAt(move.From)
	if piece == nil || piece.Side != side {
		return nil, MoveRecord{}, illegal(ReasonWrongOwner)
	}
	target := pos.PieceAt(move.To)
	if target != nil {
		if target.Side == side {
			return nil, MoveRecord{}, illegal(ReasonSelfCapture)
		}
		if target.Kind == King {
			return nil, MoveRecord{}, illegal(ReasonKingCapture)
		}
	}
	if !pos.attacks(move.From, move.To, *piece) {
		return nil, MoveRecord{}, illegal(ReasonIllegalPattern)
	}

	if move.Promote {
		if piece.Promoted || !piece.Kind.CanPromote() {
			return nil, MoveRecord{}, illegal(ReasonInvalidPromotion)
		}
		if !promotionZone(side, move.From.Rank) && !promotionZone(side, move.To.Rank) {
			return nil, MoveRecord{}, illegal(ReasonInvalidPromotion)
		}
	} else if !piece.Promoted && mustPromote(piece.Kind, side, move.To.Rank) {
		// Declining would leave the piece with no legal future move;
		// the promotion is forced.
		move.Promote = true
	}

	next := pos.Clone()
	move.Piece = piece.Kind
	record := MoveRecord{Ply: pos.ply, Side: side, Move: move}
	if target != nil {
		captured := target.Kind
		next.hands[side][captured]++
		record.Captured = &captured
	}
	moved := *piece
	if move.Promote {
		moved.Promoted = true
	}
	next.setPiece(move.From, nil)
	next.setPiece(move.To, &moved)

	if next.InCheck(side) {
		return nil, MoveRecord{}, illegal(ReasonSelfCheck)
	}

	next.turn = side.Flip()
	next.ply = pos.ply + 1
	record.Notation = move.USI()
	record.GivesCheck = next.InCheck(side.Flip())
	return next, record, nil
}

func applyDrop(pos *Position, side Side, move Move, depth int) (*Position, MoveRecord, error) {
	if !move.To.Valid() {
		return nil, MoveRecord{}, illegal(ReasonOutOfBounds)
	}
	if pos.PieceAt(move.To) != nil {
		return nil, MoveRecord{}, illegal(ReasonIllegalPattern)
	}
	if pos.hands[side][move.Piece] == 0 {
		return nil, MoveRecord{}, illegal(ReasonNotInHand)
	}
	if dropImmobilized(move.Piece, side, move.To.Rank) {
		return nil, MoveRecord{}, illegal(ReasonLastRankDrop)
	}
	if move.Piece == Pawn && pos.fileHasOwnPawn(side, move.To.File) {
		return nil, MoveRecord{}, illegal(ReasonDoublePawn)
	}

	next := pos.Clone()
	next.hands[side][move.Piece]--
	if next.hands[side][move.Piece] == 0 {
		delete(next.hands[side], move.Piece)
	}
	next.setPiece(move.To, &Piece{Kind: move.Piece, Side: side})

	if next.InCheck(side) {
		return nil, MoveRecord{}, illegal(ReasonSelfCheck)
	}

	next.turn = side.Flip()
	next.ply = pos.ply + 1

	givesCheck := next.InCheck(side.Flip())
	if move.Piece == Pawn && givesCheck && depth < maxMateDepth {
		if isCheckmateAtDepth(next, side.Flip(), depth+1) {
			return nil, MoveRecord{}, illegal(ReasonDropMate)
		}
	}

	record := MoveRecord{
		Ply:        pos.ply,
		Side:       side,
		Move:       move,
		Notation:   move.USI(),
		GivesCheck: givesCheck,
	}
	return next, record, nil
}

// mustPromote reports whether declining promotion on toRank would leave
// the piece with no legal future moves.
func mustPromote(kind PieceKind, side Side, toRank int) bool {
	last := 1
	secondLast := 2
	if side == Gote {
		last = 9
		secondLast = 8
	}
	switch kind {
	case Pawn, Lance:
		return toRank == last
	case Knight:
		return toRank == last || toRank == secondLast
	default:
		return false
	}
}

// dropImmobilized reports whether a drop of kind onto rank would leave
// the piece immediately unable to move.
func dropImmobilized(kind PieceKind, side Side, rank int) bool {
	return mustPromote(kind, side, rank)
}

// fileHasOwnPawn reports whether side already has an unpromoted pawn on
// the file. Promoted pawns do not count.
func (p *Position) fileHasOwnPawn(side Side, file int) bool {
	for rank := 1; rank <= 9; rank++ {
		piece := p.board[rank-1][file-1]
		if piece != nil && piece.Side == side && piece.Kind == Pawn && !piece.Promoted {
			return true
		}
	}
	return false
}
