package engine

import "fmt"

// Side identifies one of the two players. Sente moves first and plays
// "up" the board (toward rank 1); Gote plays toward rank 9.
type Side uint8

const (
	Sente Side = 0
	Gote  Side = 1
)

// Flip returns the opposing side.
func (s Side) Flip() Side { return s ^ 1 }

func (s Side) String() string {
	if s == Sente {
		return "sente"
	}
	return "gote"
}

// PieceKind is the unpromoted base kind of a piece.
type PieceKind uint8

const (
	Pawn PieceKind = iota
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	numPieceKinds
)

// Letter returns the upper-case SFEN/USI letter for the kind.
func (k PieceKind) Letter() byte {
	return "PLNSGBRK"[k]
}

// kindFromLetter maps an upper-case SFEN letter to a PieceKind.
func kindFromLetter(b byte) (PieceKind, bool) {
	switch b {
	case 'P':
		return Pawn, true
	case 'L':
		return Lance, true
	case 'N':
		return Knight, true
	case 'S':
		return Silver, true
	case 'G':
		return Gold, true
	case 'B':
		return Bishop, true
	case 'R':
		return Rook, true
	case 'K':
		return King, true
	default:
		return 0, false
	}
}

// CanPromote reports whether the kind has a promoted form.
func (k PieceKind) CanPromote() bool {
	return k != Gold && k != King
}

// Piece is an occupied board cell: owner, base kind, promotion state.
type Piece struct {
	Kind     PieceKind `json:"kind"`
	Side     Side      `json:"side"`
	Promoted bool      `json:"promoted"`
}

// Square addresses a board cell. Files run 9..1 left to right in SFEN
// text; ranks run 1..9 top to bottom ('a'..'i' in USI).
type Square struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

// Valid reports whether the square is on the 9x9 board.
func (sq Square) Valid() bool {
	return sq.File >= 1 && sq.File <= 9 && sq.Rank >= 1 && sq.Rank <= 9
}

func (sq Square) String() string {
	return fmt.Sprintf("%d%c", sq.File, byte('a'+sq.Rank-1))
}

// Move is a single board move or drop. IsDrop selects the variant:
// drops use Piece and To; board moves use From, To and Promote.
type Move struct {
	IsDrop  bool      `json:"isDrop"`
	Piece   PieceKind `json:"piece"`
	From    Square    `json:"from,omitempty"`
	To      Square    `json:"to"`
	Promote bool      `json:"promote,omitempty"`
}

// MoveRecord is a Move plus the metadata appended to a game's move
// history. TimestampMs and SpentMs are filled by the service layer;
// everything else is computed at apply time.
type MoveRecord struct {
	Ply         int        `json:"ply"`
	Side        Side       `json:"side"`
	Move        Move       `json:"move"`
	Notation    string     `json:"notation"`
	GivesCheck  bool       `json:"givesCheck"`
	Captured    *PieceKind `json:"captured,omitempty"`
	TimestampMs int64      `json:"timestampMs"`
	SpentMs     int64      `json:"spentMs"`
}

// Hand holds the captured pieces of one side, always unpromoted.
type Hand map[PieceKind]int

// clone returns a copy of the hand.
func (h Hand) clone() Hand {
	out := make(Hand, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// handOrder is the fixed descending-value order used by the hands
// encoding and by drop enumeration.
var handOrder = []PieceKind{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// Position is an immutable board snapshot: 9x9 grid, both hands, side
// to move and ply number. Mutating operations return a new Position.
type Position struct {
	board [9][9]*Piece // [rank-1][file-1]
	hands [2]Hand
	turn  Side
	ply   int
}

// Turn returns the side to move.
func (p *Position) Turn() Side { return p.turn }

// Ply returns the 1-based move number.
func (p *Position) Ply() int { return p.ply }

// PieceAt returns the piece on sq, or nil for an empty or off-board
// square.
func (p *Position) PieceAt(sq Square) *Piece {
	if !sq.Valid() {
		return nil
	}
	return p.board[sq.Rank-1][sq.File-1]
}

// HandCount returns how many pieces of kind the side holds in hand.
func (p *Position) HandCount(side Side, kind PieceKind) int {
	return p.hands[side][kind]
}

// HandCounts returns a copy of the side's hand.
func (p *Position) HandCounts(side Side) Hand {
	return p.hands[side].clone()
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	out := &Position{turn: p.turn, ply: p.ply}
	for r := 0; r < 9; r++ {
		for f := 0; f < 9; f++ {
			if p.board[r][f] == nil {
				continue
			}
			piece := *p.board[r][f]
			out.board[r][f] = &piece
		}
	}
	out.hands[Sente] = p.hands[Sente].clone()
	out.hands[Gote] = p.hands[Gote].clone()
	return out
}

// setPiece places (or clears, for nil) a piece on sq. Internal only;
// callers operate on clones.
func (p *Position) setPiece(sq Square, piece *Piece) {
	if !sq.Valid() {
		return
	}
	if piece == nil {
		p.board[sq.Rank-1][sq.File-1] = nil
		return
	}
	cp := *piece
	p.board[sq.Rank-1][sq.File-1] = &cp
}

// kingSquare locates the side's king. ok is false only for positions
// the engine would never persist.
func (p *Position) kingSquare(side Side) (Square, bool) {
	for r := 1; r <= 9; r++ {
		for f := 1; f <= 9; f++ {
			piece := p.board[r-1][f-1]
			if piece != nil && piece.Kind == King && piece.Side == side {
				return Square{File: f, Rank: r}, true
			}
		}
	}
	return Square{}, false
}

// promotionZone reports whether rank lies inside side's promotion zone
// (the opponent's three home ranks).
func promotionZone(side Side, rank int) bool {
	if side == Sente {
		return rank <= 3
	}
	return rank >= 7
}

// MaxGamePly is the forced-draw move limit: a game reaching this ply
// without an earlier conclusion is drawn.
const MaxGamePly = 256
