package track

import "time"

// maxAdjust bounds the drift correction per tick so one slow handler cannot
// swing the schedule.
const maxAdjust = 100 * time.Millisecond

// DriftCorrector keeps a rolling window of handler latencies and shortens or
// lengthens the next delay so the long-run sampling rate stays close to
// nominal despite scheduler jitter.
type DriftCorrector struct {
	nominal time.Duration
	window  int
	samples []time.Duration
}

func NewDriftCorrector(nominal time.Duration) *DriftCorrector {
	return &DriftCorrector{nominal: nominal, window: 10}
}

// Record adds one observed handler latency to the rolling window.
func (d *DriftCorrector) Record(latency time.Duration) {
	d.samples = append(d.samples, latency)
	if len(d.samples) > d.window {
		d.samples = d.samples[1:]
	}
}

// NextDelay returns the delay until the next sample, corrected by the clamped
// mean of recent latencies.
func (d *DriftCorrector) NextDelay() time.Duration {
	if len(d.samples) == 0 {
		return d.nominal
	}
	var sum time.Duration
	for _, s := range d.samples {
		sum += s
	}
	drift := sum / time.Duration(len(d.samples))
	if drift > maxAdjust {
		drift = maxAdjust
	}
	if drift < -maxAdjust {
		drift = -maxAdjust
	}
	next := d.nominal - drift
	if next < 0 {
		next = 0
	}
	return next
}
