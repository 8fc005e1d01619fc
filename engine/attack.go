package engine

// offset is a (file, rank) delta from Sente's perspective; rank deltas
// are negated for Gote, whose forward direction is toward rank 9.
type offset struct {
	df, dr int
}

var (
	goldSteps   = []offset{{0, -1}, {-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}}
	silverSteps = []offset{{0, -1}, {-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	kingSteps   = []offset{{0, -1}, {-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	knightSteps = []offset{{-1, -2}, {1, -2}}
	pawnSteps   = []offset{{0, -1}}
	orthoSteps  = []offset{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	diagSteps   = []offset{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

	bishopRays = diagSteps
	rookRays   = orthoSteps
	lanceRays  = []offset{{0, -1}}
)

// stepOffsets returns the fixed single-step attack offsets for a piece,
// already oriented for its side. Sliding components are not included.
func stepOffsets(piece Piece) []offset {
	var steps []offset
	switch {
	case piece.Kind == King:
		steps = kingSteps
	case piece.Kind == Gold:
		steps = goldSteps
	case piece.Promoted && (piece.Kind == Pawn || piece.Kind == Lance || piece.Kind == Knight || piece.Kind == Silver):
		steps = goldSteps
	case piece.Promoted && piece.Kind == Bishop:
		steps = orthoSteps
	case piece.Promoted && piece.Kind == Rook:
		steps = diagSteps
	case piece.Kind == Pawn:
		steps = pawnSteps
	case piece.Kind == Knight:
		steps = knightSteps
	case piece.Kind == Silver:
		steps = silverSteps
	default:
		return nil
	}
	return orient(steps, piece.Side)
}

// rayOffsets returns the sliding directions for a piece, oriented for
// its side.
func rayOffsets(piece Piece) []offset {
	switch piece.Kind {
	case Lance:
		if piece.Promoted {
			return nil
		}
		return orient(lanceRays, piece.Side)
	case Bishop:
		return bishopRays
	case Rook:
		return rookRays
	default:
		return nil
	}
}

func orient(steps []offset, side Side) []offset {
	if side == Sente {
		return steps
	}
	out := make([]offset, len(steps))
	for i, o := range steps {
		out[i] = offset{o.df, -o.dr}
	}
	return out
}

// attacks reports whether the piece standing on from attacks to,
// accounting for blockers along sliding rays.
func (p *Position) attacks(from, to Square, piece Piece) bool {
	for _, o := range stepOffsets(piece) {
		if from.File+o.df == to.File && from.Rank+o.dr == to.Rank {
			return true
		}
	}
	for _, o := range rayOffsets(piece) {
		sq := Square{File: from.File + o.df, Rank: from.Rank + o.dr}
		for sq.Valid() {
			if sq == to {
				return true
			}
			if p.PieceAt(sq) != nil {
				break
			}
			sq = Square{File: sq.File + o.df, Rank: sq.Rank + o.dr}
		}
	}
	return false
}

// AttackSquares returns every square the piece on from attacks,
// regardless of occupancy of the target square. Used by move
// generation and by the attack-table tests.
func (p *Position) AttackSquares(from Square, piece Piece) []Square {
	var out []Square
	for _, o := range stepOffsets(piece) {
		sq := Square{File: from.File + o.df, Rank: from.Rank + o.dr}
		if sq.Valid() {
			out = append(out, sq)
		}
	}
	for _, o := range rayOffsets(piece) {
		sq := Square{File: from.File + o.df, Rank: from.Rank + o.dr}
		for sq.Valid() {
			out = append(out, sq)
			if p.PieceAt(sq) != nil {
				break
			}
			sq = Square{File: sq.File + o.df, Rank: sq.Rank + o.dr}
		}
	}
	return out
}

// squareAttackedBy reports whether any piece of side attacks sq.
func (p *Position) squareAttackedBy(sq Square, side Side) bool {
	for r := 1; r <= 9; r++ {
		for f := 1; f <= 9; f++ {
			piece := p.board[r-1][f-1]
			if piece == nil || piece.Side != side {
				continue
			}
			if p.attacks(Square{File: f, Rank: r}, sq, *piece) {
				return true
			}
		}
	}
	return false
}

// InCheck reports whether side's king is attacked.
func (p *Position) InCheck(side Side) bool {
	king, ok := p.kingSquare(side)
	if !ok {
		return false
	}
	return p.squareAttackedBy(king, side.Flip())
}
