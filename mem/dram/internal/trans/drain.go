package trans

// Write drain watermarks.
const (
	HighWatermark = 40
	LowWatermark  = 20
)

// DrainState decides whether writes are drained. Once draining starts it
// continues until the write count falls to LowWatermark.
type DrainState struct {
	Draining bool
}

// Update re-evaluates the state for the given number of pending writes.
// noReads forces draining when there is nothing else to do.
func (d *DrainState) Update(writes int, noReads bool) bool {
	d.Draining = d.Draining && writes > LowWatermark

	if writes > HighWatermark || noReads {
		d.Draining = true
	}

	return d.Draining
}
