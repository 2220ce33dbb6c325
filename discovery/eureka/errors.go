//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a lookup identifier is empty.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRegistryMalformed is returned when the registry payload can not be used.
	ErrRegistryMalformed = errors.New("registry payload malformed")

	// ErrNoDNSRecords is returned when a TXT query doesn't have any answer.
	ErrNoDNSRecords = errors.New("no dns txt records")
)

// StatusError represents an unexpected registry response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eureka %s failed: status: %d body: %s", e.Op, e.Code, e.Body)
}
