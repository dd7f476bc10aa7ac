package settlement

import "errors"

var (
	// ErrIntentNotFound is returned when a resolved intent references an
	// unknown or already-closed intent.
	ErrIntentNotFound = errors.New("settlement: intent not found")
	// ErrIncorrectIntentAmountResolution is returned when a resolved amount
	// violates the intent's limit, ratio tolerance or fill policy.
	ErrIncorrectIntentAmountResolution = errors.New("settlement: incorrect intent amount resolution")
	// ErrIncorrectTransferInstruction is returned when a transfer instruction
	// does not match the accumulated resolved amounts for its (owner, asset).
	ErrIncorrectTransferInstruction = errors.New("settlement: incorrect transfer instruction")
	// ErrInsufficientReservedBalance is returned when execution finds less
	// escrow than a TransferIn releases.
	ErrInsufficientReservedBalance = errors.New("settlement: insufficient reserved balance")
	// ErrScoreMismatch is returned when the submitted score differs from the
	// independently derived one.
	ErrScoreMismatch = errors.New("settlement: score mismatch")
	// ErrUnknownInstruction is returned for an instruction kind outside the
	// closed variant set.
	ErrUnknownInstruction = errors.New("settlement: unknown instruction kind")
)
