package org

import (
	"errors"
	"fmt"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// ErrIllegalCommand is the error all rejected commands wrap.
var ErrIllegalCommand = errors.New("illegal DRAM command")

// IllegalCommandError describes a command that was issued while its legality
// predicate did not hold.
type IllegalCommandError struct {
	Kind    signal.CommandKind
	Cycle   int64
	Channel int
	Vault   int
	Rank    int
	Bank    int
	Reason  string
}

func (e *IllegalCommandError) Error() string {
	return fmt.Sprintf(
		"%s not issuable at cycle %d (channel %d, vault %d, rank %d, bank %d): %s",
		e.Kind, e.Cycle, e.Channel, e.Vault, e.Rank, e.Bank, e.Reason)
}

func (e *IllegalCommandError) Unwrap() error {
	return ErrIllegalCommand
}
