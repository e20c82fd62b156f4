package datarecording

import (
	"os"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

// RunInfo is one property of a simulation run.
type RunInfo struct {
	Property string
	Value    string
}

// RunRecorder collects the properties of a run and writes them when the run
// ends.
type RunRecorder struct {
	table    string
	recorder DataRecorder
	entries  []RunInfo
}

// NewRunRecorder creates the run table.
func NewRunRecorder(recorder DataRecorder, table string) *RunRecorder {
	recorder.CreateTable(table, RunInfo{})

	return &RunRecorder{
		table:    table,
		recorder: recorder,
	}
}

// Start records the start time, the command line and the working directory.
func (r *RunRecorder) Start() {
	r.Set("Start Time", time.Now().Format(timeLayout))
	r.Set("Command", strings.Join(os.Args, " "))

	if wd, err := os.Getwd(); err == nil {
		r.Set("Working Directory", wd)
	}
}

// Set adds a property.
func (r *RunRecorder) Set(property, value string) {
	r.entries = append(r.entries, RunInfo{Property: property, Value: value})
}

// End records the end time and writes every property.
func (r *RunRecorder) End() {
	r.Set("End Time", time.Now().Format(timeLayout))

	for _, e := range r.entries {
		r.recorder.InsertData(r.table, e)
	}

	r.entries = nil
	r.recorder.Flush()
}
