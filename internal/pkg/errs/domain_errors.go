package errs

// Error kinds shared by the allocator and the reconciliation engine. Concrete
// errors are marked with one of these so callers branch on the kind only.
var (
	ErrNotFound                = New("not found")
	ErrInvalidRange            = New("invalid date range")
	ErrConflict                = New("conflict")
	ErrForbidden               = New("forbidden")
	ErrInvalidState            = New("invalid state")
	ErrValidation              = New("validation failed")
	ErrGatewayAuth             = New("gateway auth error")
	ErrGatewayRequest          = New("gateway request error")
	ErrPaymentInitiationFailed = New("payment initiation failed")
	ErrTimeout                 = New("timeout")

	// Operation errors
	ErrDatabaseOperationFailed = New("database operation failed")
)

// IsRetryable reports whether the caller may safely repeat the operation.
func IsRetryable(err error) bool {
	return Is(err, ErrTimeout) || Is(err, ErrGatewayRequest) || Is(err, ErrGatewayAuth) ||
		Is(err, ErrPaymentInitiationFailed)
}
