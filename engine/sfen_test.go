package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePositionStart(t *testing.T) {
	pos, err := ParsePosition(StartSFEN)
	if err != nil {
		t.Fatalf("ParsePosition(StartSFEN): %v", err)
	}
	if pos.Turn() != Sente {
		t.Errorf("turn = %v, want sente", pos.Turn())
	}
	if pos.Ply() != 1 {
		t.Errorf("ply = %d, want 1", pos.Ply())
	}
	king := pos.PieceAt(Square{File: 5, Rank: 9})
	if king == nil || king.Kind != King || king.Side != Sente {
		t.Errorf("expected sente king on 5i, got %+v", king)
	}
	pawn := pos.PieceAt(Square{File: 7, Rank: 3})
	if pawn == nil || pawn.Kind != Pawn || pawn.Side != Gote {
		t.Errorf("expected gote pawn on 7c, got %+v", pawn)
	}
}

func TestSFENRoundTrip(t *testing.T) {
	cases := []string{
		StartSFEN,
		// Mid-game: promoted pieces on the board, both hands populated.
		"lnsgk2nl/1r4gs1/p1pppp1pp/1p4p2/7P1/2P6/PP1PPPP1P/1SG4R1/LN2KGSNL w Bb 9",
		"ln1g5/1ks1g3l/1pp1p1n2/p2p1p+Rpp/9/P1PP1P3/1P2PSN1P/1KG2G3/LNS5+r b BS2Pbp 47",
		"4k4/9/9/9/9/9/9/9/4K4 b 2RB2G18Pb 200",
	}
	for _, sfen := range cases {
		pos, err := ParsePosition(sfen)
		if err != nil {
			t.Fatalf("ParsePosition(%q): %v", sfen, err)
		}
		if got := pos.SFEN(); got != sfen {
			t.Errorf("round trip mismatch:\n in  %s\n out %s", sfen, got)
		}
	}
}

func TestParsePositionDefaultPly(t *testing.T) {
	pos, err := ParsePosition("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b -")
	if err != nil {
		t.Fatalf("ParsePosition without ply: %v", err)
	}
	if pos.Ply() != 1 {
		t.Errorf("ply = %d, want default 1", pos.Ply())
	}

	pos, err = ParsePosition("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - bogus")
	if err != nil {
		t.Fatalf("ParsePosition with invalid ply: %v", err)
	}
	if pos.Ply() != 1 {
		t.Errorf("ply = %d, want fallback 1", pos.Ply())
	}
}

func TestParsePositionRejections(t *testing.T) {
	cases := map[string]string{
		"eight ranks":       "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1 b - 1",
		"short rank":        "lnsgkgsnl/1r5b1/pppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"overfull rank":     "lnsgkgsnl/1r5b1/pppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"unknown letter":    "lnsgkgsnl/1r5b1/ppppppppp/9/4x4/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"bad turn marker":   "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL x - 1",
		"dangling promote":  "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSN+ b - 1",
		"trailing count":    "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b 3 1",
		"promoted gold":     "lnsgkgsnl/1r5b1/ppppppppp/9/4+G4/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"too few fields":    "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b",
	}
	for name, sfen := range cases {
		if _, err := ParsePosition(sfen); !errors.Is(err, ErrMalformedSFEN) {
			t.Errorf("%s: error = %v, want ErrMalformedSFEN", name, err)
		}
	}
}

func TestPositionKeyExcludesPly(t *testing.T) {
	a, err := ParsePosition("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParsePosition("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 57")
	if err != nil {
		t.Fatal(err)
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ only by ply:\n %s\n %s", a.Key(), b.Key())
	}
	if strings.Contains(a.Key(), " 1") && strings.HasSuffix(a.Key(), " 1") {
		t.Errorf("key %q still carries the ply field", a.Key())
	}
}

func TestHandsEncodingOrder(t *testing.T) {
	pos, err := ParsePosition("4k4/9/9/9/9/9/9/9/4K4 b P2GR3pl 1")
	if err != nil {
		t.Fatal(err)
	}
	// Fixed descending-value order: R,B,G,S,N,L,P per side, sente first.
	want := "R2GPl3p"
	fields := strings.Fields(pos.SFEN())
	if fields[2] != want {
		t.Errorf("hands = %q, want %q", fields[2], want)
	}
}
