package connector

import "github.com/ceyewan/tablegen/xerrors"

var (
	ErrConfig      = xerrors.Wrap(xerrors.ErrInvalidInput, "connector: invalid config")
	ErrConnection  = xerrors.Wrap(xerrors.ErrUnavailable, "connector: connection failed")
	ErrClientNil   = xerrors.New("connector: client is nil")
	ErrHealthCheck = xerrors.Wrap(xerrors.ErrUnavailable, "connector: health check failed")
)
