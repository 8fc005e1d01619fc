package engine

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sq is shorthand for building expectation tables.
func sq(file, rank int) Square { return Square{File: file, Rank: rank} }

func sortSquares(squares []Square) []Square {
	out := make([]Square, len(squares))
	copy(out, squares)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].File < out[j].File
	})
	return out
}

// emptyBoard returns a position with no pieces at all.
func emptyBoard(t *testing.T) *Position {
	t.Helper()
	pos, err := ParsePosition("9/9/9/9/9/9/9/9/9 b - 1")
	if err != nil {
		t.Fatalf("empty board: %v", err)
	}
	return pos
}

func TestAttackTablesOnEmptyBoard(t *testing.T) {
	from := sq(5, 5)

	goldFromCenter := []Square{sq(5, 4), sq(4, 4), sq(6, 4), sq(4, 5), sq(6, 5), sq(5, 6)}
	bishopRaysFromCenter := []Square{
		sq(4, 4), sq(3, 3), sq(2, 2), sq(1, 1),
		sq(6, 4), sq(7, 3), sq(8, 2), sq(9, 1),
		sq(4, 6), sq(3, 7), sq(2, 8), sq(1, 9),
		sq(6, 6), sq(7, 7), sq(8, 8), sq(9, 9),
	}
	rookRaysFromCenter := []Square{
		sq(5, 4), sq(5, 3), sq(5, 2), sq(5, 1),
		sq(5, 6), sq(5, 7), sq(5, 8), sq(5, 9),
		sq(4, 5), sq(3, 5), sq(2, 5), sq(1, 5),
		sq(6, 5), sq(7, 5), sq(8, 5), sq(9, 5),
	}

	cases := []struct {
		name  string
		piece Piece
		want  []Square
	}{
		{"sente pawn", Piece{Kind: Pawn, Side: Sente}, []Square{sq(5, 4)}},
		{"gote pawn", Piece{Kind: Pawn, Side: Gote}, []Square{sq(5, 6)}},
		{"sente lance", Piece{Kind: Lance, Side: Sente}, []Square{sq(5, 4), sq(5, 3), sq(5, 2), sq(5, 1)}},
		{"gote lance", Piece{Kind: Lance, Side: Gote}, []Square{sq(5, 6), sq(5, 7), sq(5, 8), sq(5, 9)}},
		{"sente knight", Piece{Kind: Knight, Side: Sente}, []Square{sq(4, 3), sq(6, 3)}},
		{"gote knight", Piece{Kind: Knight, Side: Gote}, []Square{sq(4, 7), sq(6, 7)}},
		{"sente silver", Piece{Kind: Silver, Side: Sente}, []Square{sq(5, 4), sq(4, 4), sq(6, 4), sq(4, 6), sq(6, 6)}},
		{"sente gold", Piece{Kind: Gold, Side: Sente}, goldFromCenter},
		{"king", Piece{Kind: King, Side: Sente}, []Square{
			sq(4, 4), sq(5, 4), sq(6, 4), sq(4, 5), sq(6, 5), sq(4, 6), sq(5, 6), sq(6, 6),
		}},
		{"bishop", Piece{Kind: Bishop, Side: Sente}, bishopRaysFromCenter},
		{"rook", Piece{Kind: Rook, Side: Sente}, rookRaysFromCenter},
		{"tokin", Piece{Kind: Pawn, Side: Sente, Promoted: true}, goldFromCenter},
		{"promoted lance", Piece{Kind: Lance, Side: Sente, Promoted: true}, goldFromCenter},
		{"promoted knight", Piece{Kind: Knight, Side: Sente, Promoted: true}, goldFromCenter},
		{"promoted silver", Piece{Kind: Silver, Side: Sente, Promoted: true}, goldFromCenter},
		{"horse", Piece{Kind: Bishop, Side: Sente, Promoted: true},
			append([]Square{sq(5, 4), sq(4, 5), sq(6, 5), sq(5, 6)}, bishopRaysFromCenter...)},
		{"dragon", Piece{Kind: Rook, Side: Sente, Promoted: true},
			append([]Square{sq(4, 4), sq(6, 4), sq(4, 6), sq(6, 6)}, rookRaysFromCenter...)},
		{"gote gold", Piece{Kind: Gold, Side: Gote}, []Square{
			sq(5, 6), sq(4, 6), sq(6, 6), sq(4, 5), sq(6, 5), sq(5, 4),
		}},
	}

	pos := emptyBoard(t)
	for _, tc := range cases {
		got := sortSquares(pos.AttackSquares(from, tc.piece))
		want := sortSquares(tc.want)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s attack set mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestSlidingAttacksStopAtBlockers(t *testing.T) {
	// Sente rook on 5e, gote pawn on 5c, sente pawn on 3e.
	pos, err := ParsePosition("9/9/4p4/9/2P1R4/9/9/9/9 b - 1")
	if err != nil {
		t.Fatal(err)
	}
	rook := Piece{Kind: Rook, Side: Sente}
	from := sq(5, 5)

	if !pos.attacks(from, sq(5, 3), rook) {
		t.Error("rook should attack the first occupant along the ray")
	}
	if pos.attacks(from, sq(5, 2), rook) {
		t.Error("rook attack must stop at the blocking pawn")
	}
	if !pos.attacks(from, sq(3, 5), rook) {
		t.Error("rook should attack own pawn's square (occupancy handled by legality)")
	}
	if pos.attacks(from, sq(2, 5), rook) {
		t.Error("rook attack must stop at own pawn")
	}
}

func TestInCheck(t *testing.T) {
	// Gote king on 5a, sente rook on 5i: open file means check.
	pos, err := ParsePosition("4k4/9/9/9/9/9/9/9/4RK3 w - 1")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.InCheck(Gote) {
		t.Error("gote should be in check from the rook on the open file")
	}
	if pos.InCheck(Sente) {
		t.Error("sente is not in check")
	}

	// Interpose a gote pawn: no longer check.
	blocked, err := ParsePosition("4k4/9/9/4p4/9/9/9/9/4RK3 w - 1")
	if err != nil {
		t.Fatal(err)
	}
	if blocked.InCheck(Gote) {
		t.Error("interposed pawn should block the check")
	}
}
