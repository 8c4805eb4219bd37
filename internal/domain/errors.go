package domain

import "errors"

var (
	// ErrNotOwner is returned when the caller does not hold the token
	ErrNotOwner = errors.New("caller is not the token owner")
	// ErrNotSeller is returned when the caller is not the recorded seller of a listing
	ErrNotSeller = errors.New("caller is not the listing seller")
	// ErrNotAdministrator is returned when a non-administrator calls an administrator-only operation
	ErrNotAdministrator = errors.New("caller is not the marketplace administrator")

	// ErrAlreadyListed is returned when the token already has an active listing
	ErrAlreadyListed = errors.New("token is already listed")
	// ErrNotActive is returned when the token has no active listing
	ErrNotActive = errors.New("listing is not active")
	// ErrAlreadyDeployed is returned when deploying into a store that already holds a marketplace
	ErrAlreadyDeployed = errors.New("marketplace already deployed")
	// ErrNotDeployed is returned when the store holds no marketplace
	ErrNotDeployed = errors.New("marketplace not deployed")

	// ErrInvalidPrice is returned when a listing price is not positive
	ErrInvalidPrice = errors.New("price must be greater than zero")
	// ErrInsufficientPayment is returned when the payment is below the listing price
	ErrInsufficientPayment = errors.New("insufficient payment")
	// ErrInvalidAmount is returned when a value amount is malformed or not positive
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAccount is returned when an account identifier is malformed or the zero address
	ErrInvalidAccount = errors.New("invalid account")

	// ErrUnknownToken is returned when the token was never minted
	ErrUnknownToken = errors.New("unknown token")
	// ErrUnknownListing is returned when the token was never listed
	ErrUnknownListing = errors.New("unknown listing")

	// ErrInsufficientFunds is returned when an account cannot cover a value transfer
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferFailed is returned when a recipient rejects a value transfer
	ErrTransferFailed = errors.New("value transfer failed")
)

// ErrorKind groups marketplace errors by the precondition they violate
type ErrorKind string

const (
	ErrorKindAuthorization ErrorKind = "authorization"
	ErrorKindState         ErrorKind = "state"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindLookup        ErrorKind = "lookup"
	ErrorKindTransfer      ErrorKind = "transfer"
	ErrorKindInternal      ErrorKind = "internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNotOwner, ErrorKindAuthorization},
	{ErrNotSeller, ErrorKindAuthorization},
	{ErrNotAdministrator, ErrorKindAuthorization},
	{ErrAlreadyListed, ErrorKindState},
	{ErrNotActive, ErrorKindState},
	{ErrAlreadyDeployed, ErrorKindState},
	{ErrNotDeployed, ErrorKindState},
	{ErrInvalidPrice, ErrorKindValidation},
	{ErrInsufficientPayment, ErrorKindValidation},
	{ErrInvalidAmount, ErrorKindValidation},
	{ErrInvalidAccount, ErrorKindValidation},
	{ErrUnknownToken, ErrorKindLookup},
	{ErrUnknownListing, ErrorKindLookup},
	{ErrInsufficientFunds, ErrorKindTransfer},
	{ErrTransferFailed, ErrorKindTransfer},
}

// KindOf classifies err. Errors outside the marketplace taxonomy are internal.
func KindOf(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ErrorKindInternal
}
