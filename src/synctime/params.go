package synctime

import "time"

// WaitParams describes the network being measured.
type WaitParams struct {
	NetworkSize int
	Tolerance   int
}

// NetworkSize ...
func NetworkSize(size, tolerance int) WaitParams {
	return WaitParams{NetworkSize: size, Tolerance: tolerance}
}

// TwoNodes requires two nodes to agree.
func TwoNodes() WaitParams {
	return WaitParams{NetworkSize: 2, Tolerance: 0}
}

// Required returns the number of nodes that must share the majority tip.
func (p WaitParams) Required() int {
	r := p.NetworkSize - p.Tolerance
	if r < 1 {
		return 1
	}
	return r
}

// DefaultCap is the time allowed for convergence when none is given:
// (2*size + 5*tolerance)*2 seconds.
func (p WaitParams) DefaultCap() time.Duration {
	return time.Duration(2*(2*p.NetworkSize+5*p.Tolerance)) * time.Second
}

// ReportInterval is the cadence of progress reports.
type ReportInterval time.Duration

const (
	Standard ReportInterval = ReportInterval(20 * time.Second)
	Long     ReportInterval = ReportInterval(60 * time.Second)
)

// Custom ...
func Custom(d time.Duration) ReportInterval {
	return ReportInterval(d)
}

// Duration ...
func (r ReportInterval) Duration() time.Duration {
	return time.Duration(r)
}
