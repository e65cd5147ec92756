package cli

import "errors"

var (
	ErrMissingArgument  = errors.New("missing argument")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrNoInput          = errors.New("no input")
	ErrInvalidLogLevel  = errors.New("invalid log level")
)
