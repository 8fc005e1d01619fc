// internal/game/kif.go
package game

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
)

// ErrNotFinished is returned when a KIF export is requested for a game
// that has not reached a terminal state yet.
var ErrNotFinished = errors.New("game: not finished")

// kifTerminalMarkers maps each termination reason to the ending marker
// used by KIF recorders.
var kifTerminalMarkers = map[models.TerminationReason]string{
	models.ReasonCheckmate:      "詰み",
	models.ReasonResign:         "投了",
	models.ReasonTimeout:        "切れ負け",
	models.ReasonDisconnect:     "切れ負け",
	models.ReasonRepetitionDraw: "千日手",
	models.ReasonPerpetualCheck: "千日手",
	models.ReasonEnteringKing:   "持将棋",
	models.ReasonMaxMoves:       "持将棋",
}

// ExportKIF renders a finished game as a KIF record. Player names are
// the user ids; callers with a directory service can substitute
// display names before handing the record out.
func (s *Service) ExportKIF(ctx context.Context, gameID uuid.UUID) (string, error) {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return "", err
	}
	if g.Status != models.StatusFinished {
		return "", ErrNotFinished
	}
	sente := g.PlayerBySide(engine.Sente).UserID.String()
	gote := g.PlayerBySide(engine.Gote).UserID.String()
	return engine.ExportKIF(sente, gote, g.MoveHistory, kifTerminalMarkers[g.TerminationReason])
}
