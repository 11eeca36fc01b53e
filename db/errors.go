package db

import "github.com/ceyewan/tablegen/xerrors"

var (
	ErrInvalidConfig     = xerrors.Wrap(xerrors.ErrInvalidInput, "db: invalid config")
	ErrConnectorRequired = xerrors.Wrap(xerrors.ErrInvalidInput, "db: connector is required")
)
