package domain

import "errors"

var (
	ErrAdapterTimeout         = errors.New("move source timed out")
	ErrAdapterInvalidResponse = errors.New("move source returned an invalid move")
	ErrAdapterUnavailable     = errors.New("move source unavailable")
	ErrEvaluationUnavailable  = errors.New("evaluation unavailable")
	ErrNoLegalMoves           = errors.New("no legal moves in position")
	ErrIllegalMove            = errors.New("illegal chess move")
	ErrTurnCancelled          = errors.New("turn cancelled by reset")
	ErrGameOver               = errors.New("game already finished")
)
