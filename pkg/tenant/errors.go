package tenant

import "errors"

var ErrInvalidTenantID = errors.New("invalid tenant id")
