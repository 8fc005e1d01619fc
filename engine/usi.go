package engine

import (
	"fmt"
	"strings"
)

// ParseUSIMove decodes the wire move notation: "7g7f" (optionally with
// a trailing '+' for promotion) for a board move, or "P*5e" for a drop.
// Any other shape is an input error, never a rule violation.
func ParseUSIMove(text string) (Move, error) {
	if idx := strings.IndexByte(text, '*'); idx >= 0 {
		if idx != 1 || len(text) != 4 {
			return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, text)
		}
		kind, ok := kindFromLetter(text[0])
		if !ok || kind == King {
			return Move{}, fmt.Errorf("%w: undroppable piece letter in %q", ErrMalformedMove, text)
		}
		to, err := parseUSISquare(text[2:4])
		if err != nil {
			return Move{}, err
		}
		return Move{IsDrop: true, Piece: kind, To: to}, nil
	}

	if len(text) != 4 && len(text) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, text)
	}
	from, err := parseUSISquare(text[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := parseUSISquare(text[2:4])
	if err != nil {
		return Move{}, err
	}
	promote := false
	if len(text) == 5 {
		if text[4] != '+' {
			return Move{}, fmt.Errorf("%w: bad promotion marker in %q", ErrMalformedMove, text)
		}
		promote = true
	}
	return Move{From: from, To: to, Promote: promote}, nil
}

func parseUSISquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, text)
	}
	file := int(text[0] - '0')
	rank := int(text[1]-'a') + 1
	sq := Square{File: file, Rank: rank}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, text)
	}
	return sq, nil
}

// USI returns the wire notation for the move.
func (m Move) USI() string {
	if m.IsDrop {
		return fmt.Sprintf("%c*%s", m.Piece.Letter(), m.To)
	}
	if m.Promote {
		return m.From.String() + m.To.String() + "+"
	}
	return m.From.String() + m.To.String()
}
