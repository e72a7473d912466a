package types

import "errors"

// Error classes. Every error returned by the engine wraps exactly one of
// these, so callers can branch on the class with errors.Is without matching
// the specific failure.
var (
	// ErrValidation marks a bad argument: non-positive amount, out-of-range
	// fee, unknown market. Not retryable as-is.
	ErrValidation = errors.New("validation")

	// ErrAuthorization marks a wrong signer for a role-gated operation.
	ErrAuthorization = errors.New("authorization")

	// ErrState marks an operation that is legal in general but not in the
	// current lifecycle state: paused market, closed betting window.
	ErrState = errors.New("state")

	// ErrOracle marks a price-feed failure. Retryable by re-invoking the
	// same operation later.
	ErrOracle = errors.New("oracle")

	// ErrTransfer marks a ledger transfer failure. Retryable.
	ErrTransfer = errors.New("transfer")
)

// Specific failures, each bound to its class.
var (
	ErrAmountTooSmall      = errors.Join(ErrValidation, errors.New("amount below market minimum"))
	ErrInvalidFeeRate      = errors.Join(ErrValidation, errors.New("fee rate out of range"))
	ErrInvalidPeriod       = errors.Join(ErrValidation, errors.New("period outside feed bounds"))
	ErrMarketExists        = errors.Join(ErrValidation, errors.New("market id already exists"))
	ErrFeedExists          = errors.Join(ErrValidation, errors.New("price feed already whitelisted"))
	ErrMarketNotFound      = errors.Join(ErrValidation, errors.New("market not found"))
	ErrFeedNotFound        = errors.Join(ErrValidation, errors.New("price feed not whitelisted"))
	ErrRoundNotFound       = errors.Join(ErrValidation, errors.New("round not found"))
	ErrMarketPaused        = errors.Join(ErrState, errors.New("market paused"))
	ErrBettingWindowClosed = errors.Join(ErrState, errors.New("betting window closed"))
	ErrRoundNotSettled     = errors.Join(ErrState, errors.New("round not settled"))
	ErrRoundNotRedeemed    = errors.Join(ErrState, errors.New("round has unredeemed results"))
	ErrUnauthorized        = errors.Join(ErrAuthorization, errors.New("caller lacks required role"))
	ErrPriceStale          = errors.Join(ErrOracle, errors.New("price too old"))
	ErrPriceNotFound       = errors.Join(ErrOracle, errors.New("feed has no price"))
	ErrPriceInvalid        = errors.Join(ErrOracle, errors.New("price not positive"))
	ErrConfidenceTooHigh   = errors.Join(ErrOracle, errors.New("price confidence above bound"))
	ErrInsufficientFunds   = errors.Join(ErrTransfer, errors.New("insufficient funds"))
	ErrTransferRejected    = errors.Join(ErrTransfer, errors.New("transfer rejected"))
)

// Retryable reports whether re-invoking the same operation later can
// succeed without corrected input.
func Retryable(err error) bool {
	return errors.Is(err, ErrOracle) || errors.Is(err, ErrTransfer)
}
