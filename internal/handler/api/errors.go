package api

import "tourism-booking/internal/pkg/errs"

// errUnauthenticated means a protected route ran without the auth middleware.
var errUnauthenticated = errs.New("missing authenticated user")
