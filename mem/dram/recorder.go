package dram

import (
	"sync"

	"github.com/anirbannag/usimm-pm/datarecording"
	"github.com/anirbannag/usimm-pm/sim/hooking"
)

type commandEntry struct {
	Cycle     int64
	Kind      string
	Channel   int
	Vault     int
	Rank      int
	Bank      int
	Row       int
	Column    int
	RequestID string
	Core      int
}

// CommandRecorder is a hook that stores every issued command in a table.
type CommandRecorder struct {
	lock     sync.Mutex
	recorder datarecording.DataRecorder
	table    string
	count    uint64
}

// NewCommandRecorder creates the command table and returns a hook that fills
// it.
func NewCommandRecorder(
	recorder datarecording.DataRecorder,
	table string,
) *CommandRecorder {
	recorder.CreateTable(table, commandEntry{})

	return &CommandRecorder{
		recorder: recorder,
		table:    table,
	}
}

// Func records the command carried by a command-issued hook context.
func (r *CommandRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosCommandIssued {
		return
	}

	cmd := ctx.Item.(Command)
	entry := commandEntry{
		Cycle:   cmd.Cycle,
		Kind:    cmd.Kind.String(),
		Channel: cmd.Location.Channel,
		Vault:   cmd.Location.Vault,
		Rank:    cmd.Location.Rank,
		Bank:    cmd.Location.Bank,
		Row:     cmd.Location.Row,
		Column:  cmd.Location.Column,
		Core:    -1,
	}

	if cmd.Request != nil {
		entry.RequestID = cmd.Request.ID
		entry.Core = cmd.Request.Core
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.recorder.InsertData(r.table, entry)
	r.count++
}

// Count returns the number of commands recorded.
func (r *CommandRecorder) Count() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.count
}

// Flush writes the buffered commands.
func (r *CommandRecorder) Flush() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.recorder.Flush()
}

var _ hooking.Hook = (*CommandRecorder)(nil)
