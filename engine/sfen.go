package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// StartSFEN is the standard starting setup in the 4-field position
// encoding: board ranks, turn marker, hands, ply.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// StartPosition returns the standard starting position.
func StartPosition() *Position {
	pos, err := ParsePosition(StartSFEN)
	if err != nil {
		panic("engine: start position constant failed to parse: " + err.Error())
	}
	return pos
}

// ParsePosition decodes the 4-field text form "board turn hands ply".
// The ply field defaults to 1 when absent or invalid; every other
// malformation is rejected with ErrMalformedSFEN.
func ParsePosition(sfen string) (*Position, error) {
	fields := strings.Fields(sfen)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: want at least 3 fields, got %d", ErrMalformedSFEN, len(fields))
	}
	pos := &Position{ply: 1}
	pos.hands[Sente] = Hand{}
	pos.hands[Gote] = Hand{}

	switch fields[1] {
	case "b":
		pos.turn = Sente
	case "w":
		pos.turn = Gote
	default:
		return nil, fmt.Errorf("%w: turn marker %q", ErrMalformedSFEN, fields[1])
	}

	if err := parseBoardField(fields[0], pos); err != nil {
		return nil, err
	}
	if err := parseHandsField(fields[2], pos); err != nil {
		return nil, err
	}
	if len(fields) >= 4 {
		if ply, err := strconv.Atoi(fields[3]); err == nil && ply >= 1 {
			pos.ply = ply
		}
	}
	return pos, nil
}

func parseBoardField(board string, pos *Position) error {
	ranks := strings.Split(board, "/")
	if len(ranks) != 9 {
		return fmt.Errorf("%w: want 9 ranks, got %d", ErrMalformedSFEN, len(ranks))
	}
	for rankIdx, rankText := range ranks {
		file := 9
		for i := 0; i < len(rankText); i++ {
			c := rankText[i]
			if c >= '1' && c <= '9' {
				file -= int(c - '0')
				continue
			}
			promoted := false
			if c == '+' {
				promoted = true
				i++
				if i >= len(rankText) {
					return fmt.Errorf("%w: dangling promotion marker in rank %d", ErrMalformedSFEN, rankIdx+1)
				}
				c = rankText[i]
			}
			side := Sente
			if c >= 'a' && c <= 'z' {
				side = Gote
				c -= 'a' - 'A'
			}
			kind, ok := kindFromLetter(c)
			if !ok {
				return fmt.Errorf("%w: unknown piece letter %q", ErrMalformedSFEN, string(rankText[i]))
			}
			if promoted && !kind.CanPromote() {
				return fmt.Errorf("%w: %c cannot be promoted", ErrMalformedSFEN, c)
			}
			if file < 1 {
				return fmt.Errorf("%w: rank %d has more than 9 cells", ErrMalformedSFEN, rankIdx+1)
			}
			pos.board[rankIdx][file-1] = &Piece{Kind: kind, Side: side, Promoted: promoted}
			file--
		}
		if file != 0 {
			return fmt.Errorf("%w: rank %d does not have 9 cells", ErrMalformedSFEN, rankIdx+1)
		}
	}
	return nil
}

func parseHandsField(hands string, pos *Position) error {
	if hands == "-" {
		return nil
	}
	count := 0
	for i := 0; i < len(hands); i++ {
		c := hands[i]
		if c >= '0' && c <= '9' {
			count = count*10 + int(c-'0')
			continue
		}
		if count == 0 {
			count = 1
		}
		side := Sente
		if c >= 'a' && c <= 'z' {
			side = Gote
			c -= 'a' - 'A'
		}
		kind, ok := kindFromLetter(c)
		if !ok || kind == King {
			return fmt.Errorf("%w: unknown hand piece %q", ErrMalformedSFEN, string(hands[i]))
		}
		pos.hands[side][kind] += count
		count = 0
	}
	if count != 0 {
		return fmt.Errorf("%w: trailing hand count", ErrMalformedSFEN)
	}
	return nil
}

// SFEN encodes the position back to the 4-field text form. It is the
// left inverse of ParsePosition for every reachable position.
func (p *Position) SFEN() string {
	rows := make([]string, 0, 9)
	for rank := 1; rank <= 9; rank++ {
		rows = append(rows, p.rankRun(rank))
	}
	turn := "b"
	if p.turn == Gote {
		turn = "w"
	}
	hands := encodeHands(p.hands[Sente], p.hands[Gote])
	return fmt.Sprintf("%s %s %s %d", strings.Join(rows, "/"), turn, hands, p.ply)
}

// Key is the repetition-normalized form: board, turn and hands with the
// ply excluded.
func (p *Position) Key() string {
	sfen := p.SFEN()
	return sfen[:strings.LastIndexByte(sfen, ' ')]
}

func (p *Position) rankRun(rank int) string {
	var b strings.Builder
	empty := 0
	flush := func() {
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
			empty = 0
		}
	}
	for file := 9; file >= 1; file-- {
		piece := p.board[rank-1][file-1]
		if piece == nil {
			empty++
			continue
		}
		flush()
		if piece.Promoted {
			b.WriteByte('+')
		}
		letter := piece.Kind.Letter()
		if piece.Side == Gote {
			letter += 'a' - 'A'
		}
		b.WriteByte(letter)
	}
	flush()
	return b.String()
}

func encodeHands(sente, gote Hand) string {
	var b strings.Builder
	writeSide := func(h Hand, lower bool) {
		for _, kind := range handOrder {
			count := h[kind]
			if count == 0 {
				continue
			}
			if count > 1 {
				b.WriteString(strconv.Itoa(count))
			}
			letter := kind.Letter()
			if lower {
				letter += 'a' - 'A'
			}
			b.WriteByte(letter)
		}
	}
	writeSide(sente, false)
	writeSide(gote, true)
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}
