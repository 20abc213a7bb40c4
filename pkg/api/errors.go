package api

import "errors"

var (
	ErrEnqueuerNil      = errors.New("enqueuer is nil")
	ErrJobRepositoryNil = errors.New("job repository is nil")
	ErrDLQManagerNil    = errors.New("dlq manager is nil")
	ErrMonitorNil       = errors.New("alert monitor is nil")
)
