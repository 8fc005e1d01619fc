package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// KIF game-record support. Finished games are exportable as KIF move
// lists; imported files may be UTF-8 or Shift-JIS encoded.

var kifRankKanji = []rune("一二三四五六七八九")
var kifFileWide = []rune("１２３４５６７８９")

var kifPieceNames = map[PieceKind]string{
	Pawn:   "歩",
	Lance:  "香",
	Knight: "桂",
	Silver: "銀",
	Gold:   "金",
	Bishop: "角",
	Rook:   "飛",
	King:   "玉",
}

var kifPromotedNames = map[PieceKind]string{
	Pawn:   "と",
	Lance:  "成香",
	Knight: "成桂",
	Silver: "成銀",
	Bishop: "馬",
	Rook:   "龍",
}

// DecodeKIFText normalizes raw KIF bytes to UTF-8, stripping a BOM and
// falling back to Shift-JIS when the input is not valid UTF-8.
func DecodeKIFText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("kif: input is neither UTF-8 nor Shift-JIS")
	}
	return string(decoded), nil
}

// ExportKIF renders a game's move history as a KIF record. The history
// is replayed from the standard setup to resolve piece names (handicap
// exports are not supported); terminal names the ending marker, e.g.
// "投了".
func ExportKIF(senteName, goteName string, records []MoveRecord, terminal string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "先手：%s\n", senteName)
	fmt.Fprintf(&b, "後手：%s\n", goteName)
	b.WriteString("手合割：平手\n")
	b.WriteString("手数----指手---------消費時間--\n")
	pos := StartPosition()
	for _, rec := range records {
		text, err := kifMoveText(pos, rec.Move)
		if err != nil {
			return "", fmt.Errorf("kif: ply %d: %w", rec.Ply, err)
		}
		fmt.Fprintf(&b, "%4d %s (%2d:%02d/)\n", rec.Ply, text, rec.SpentMs/60000, rec.SpentMs/1000%60)
		next, _, err := Apply(pos, pos.Turn(), rec.Move)
		if err != nil {
			return "", fmt.Errorf("kif: replaying ply %d: %w", rec.Ply, err)
		}
		pos = next
	}
	if terminal != "" {
		fmt.Fprintf(&b, "%4d %s\n", len(records)+1, terminal)
	}
	return b.String(), nil
}

func kifMoveText(pos *Position, m Move) (string, error) {
	var b strings.Builder
	b.WriteRune(kifFileWide[m.To.File-1])
	b.WriteRune(kifRankKanji[m.To.Rank-1])
	if m.IsDrop {
		b.WriteString(kifPieceNames[m.Piece])
		b.WriteString("打")
		return b.String(), nil
	}
	piece := pos.PieceAt(m.From)
	if piece == nil {
		return "", fmt.Errorf("no piece on %s", m.From)
	}
	if piece.Promoted {
		b.WriteString(kifPromotedNames[piece.Kind])
	} else {
		b.WriteString(kifPieceNames[piece.Kind])
	}
	if m.Promote {
		b.WriteString("成")
	}
	fmt.Fprintf(&b, "(%d%d)", m.From.File, m.From.Rank)
	return b.String(), nil
}

// kifTerminalMarkers are the end-of-game tokens that stop move parsing.
var kifTerminalMarkers = []string{
	"投了", "中断", "持将棋", "千日手", "詰み", "切れ負け",
	"反則勝ち", "反則負け", "入玉勝ち", "勝ち宣言",
}

func isKIFTerminal(token string) bool {
	for _, m := range kifTerminalMarkers {
		if token == m {
			return true
		}
	}
	return false
}

// ParseKIFMoves extracts the USI move list from decoded KIF text.
// Parsing stops at the first terminal marker.
func ParseKIFMoves(text string) ([]string, error) {
	var moves []string
	var prevDest *Square
	for lineno, line := range strings.Split(text, "\n") {
		token, ok := kifMoveToken(line)
		if !ok {
			continue
		}
		if isKIFTerminal(token) {
			break
		}
		usi, dest, err := parseKIFMoveToken(token, prevDest)
		if err != nil {
			return nil, fmt.Errorf("kif line %d: %w", lineno+1, err)
		}
		moves = append(moves, usi)
		prevDest = dest
	}
	return moves, nil
}

// kifMoveToken pulls the move text out of a numbered move line.
func kifMoveToken(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	for _, c := range fields[0] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return fields[1], true
}

func parseKIFMoveToken(token string, prevDest *Square) (string, *Square, error) {
	work := token
	var dest Square
	if strings.HasPrefix(work, "同") {
		if prevDest == nil {
			return "", nil, errors.New("same-square move without previous destination")
		}
		dest = *prevDest
		work = strings.TrimLeft(strings.TrimPrefix(work, "同"), " 　")
	} else {
		runes := []rune(work)
		if len(runes) < 2 {
			return "", nil, fmt.Errorf("invalid move token %q", token)
		}
		file, ok := kifFile(runes[0])
		if !ok {
			return "", nil, fmt.Errorf("invalid destination file in %q", token)
		}
		rank, ok := kifRank(runes[1])
		if !ok {
			return "", nil, fmt.Errorf("invalid destination rank in %q", token)
		}
		dest = Square{File: file, Rank: rank}
		work = string(runes[2:])
	}

	var from Square
	hasFrom := false
	if open := strings.IndexByte(work, '('); open >= 0 {
		closeIdx := strings.IndexByte(work, ')')
		if closeIdx == open+3 {
			f := int(work[open+1] - '0')
			r := int(work[open+2] - '0')
			from = Square{File: f, Rank: r}
			hasFrom = from.Valid()
		}
		work = work[:open]
	}

	noPromote := strings.Contains(work, "不成")
	work = strings.Replace(work, "不成", "", 1)
	promote := strings.Contains(work, "成") && !strings.HasPrefix(work, "成")
	drop := strings.Contains(work, "打")
	work = strings.Replace(work, "打", "", 1)

	kind, kindPromoted, ok := kifPiece(work)
	if !ok {
		return "", nil, fmt.Errorf("unknown piece in %q", token)
	}
	if noPromote {
		promote = false
	}

	if drop {
		if kindPromoted {
			return "", nil, errors.New("cannot drop a promoted piece")
		}
		m := Move{IsDrop: true, Piece: kind, To: dest}
		return m.USI(), &dest, nil
	}
	if !hasFrom {
		return "", nil, fmt.Errorf("missing source square in %q", token)
	}
	m := Move{From: from, To: dest, Promote: promote}
	return m.USI(), &dest, nil
}

func kifFile(r rune) (int, bool) {
	if r >= '1' && r <= '9' {
		return int(r - '0'), true
	}
	for i, w := range kifFileWide {
		if r == w {
			return i + 1, true
		}
	}
	return 0, false
}

func kifRank(r rune) (int, bool) {
	for i, k := range kifRankKanji {
		if r == k {
			return i + 1, true
		}
	}
	if r >= '1' && r <= '9' {
		return int(r - '0'), true
	}
	return 0, false
}

// kifPiece resolves a piece name, longest names first so 成香 is not
// read as 成 + 香.
func kifPiece(text string) (PieceKind, bool, bool) {
	text = strings.TrimSpace(text)
	type def struct {
		name     string
		kind     PieceKind
		promoted bool
	}
	defs := []def{
		{"成香", Lance, true}, {"成桂", Knight, true}, {"成銀", Silver, true},
		{"と", Pawn, true}, {"馬", Bishop, true}, {"龍", Rook, true}, {"竜", Rook, true},
		{"玉", King, false}, {"王", King, false},
		{"飛", Rook, false}, {"角", Bishop, false}, {"金", Gold, false},
		{"銀", Silver, false}, {"桂", Knight, false}, {"香", Lance, false}, {"歩", Pawn, false},
	}
	for _, d := range defs {
		if strings.HasPrefix(text, d.name) {
			return d.kind, d.promoted, true
		}
	}
	return 0, false, false
}
