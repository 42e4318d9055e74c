package types

import "github.com/pkg/errors"

var (
	// ErrQuoteNotFound means the provider has no listing for the ticker.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrAlertNotFound means no stored alert matched the lookup.
	ErrAlertNotFound = errors.New("alert not found")
)
