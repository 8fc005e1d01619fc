package engine

import (
	"errors"
	"fmt"
)

// Reason is the stable code reported for a rejected move. The caller is
// expected to surface it to the end user verbatim.
type Reason string

const (
	ReasonOutOfBounds      Reason = "out_of_bounds"
	ReasonWrongOwner       Reason = "wrong_owner"
	ReasonSelfCapture      Reason = "self_capture"
	ReasonKingCapture      Reason = "king_capture"
	ReasonIllegalPattern   Reason = "illegal_pattern"
	ReasonInvalidPromotion Reason = "invalid_promotion"
	ReasonNotInHand        Reason = "not_in_hand"
	ReasonDoublePawn       Reason = "double_pawn"
	ReasonLastRankDrop     Reason = "last_rank_drop"
	ReasonDropMate         Reason = "drop_mate"
	ReasonSelfCheck        Reason = "self_check"
)

// IllegalMoveError reports a rule violation. It is distinct from input
// errors: the move was well-formed but not legal in this position.
type IllegalMoveError struct {
	Reason Reason
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move: %s", e.Reason)
}

func illegal(reason Reason) error {
	return &IllegalMoveError{Reason: reason}
}

// AsIllegalMove extracts the rule-violation reason from err, if any.
func AsIllegalMove(err error) (Reason, bool) {
	var ime *IllegalMoveError
	if errors.As(err, &ime) {
		return ime.Reason, true
	}
	return "", false
}

// Input errors: the request never reached the rules engine.
var (
	ErrMalformedMove    = errors.New("malformed move string")
	ErrMalformedSFEN    = errors.New("malformed position string")
	ErrNoKingOnBoard    = errors.New("position has no king for side")
)
