package dataset

import "errors"

// Sentinel errors for the dataset package.
var (
	ErrUnsupportedExt = errors.New("dataset: unsupported file extension")
	ErrNoActiveFile   = errors.New("dataset: no active file")
	ErrTemporary      = errors.New("dataset: temporary file has no backing path")
	ErrExists         = errors.New("dataset: file already exists")
)
