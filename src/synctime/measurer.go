package synctime

import (
	"fmt"
	"io"
	"time"

	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/monitor"
	"github.com/sirupsen/logrus"
)

// Measurer times the convergence of a set of nodes.
type Measurer struct {
	params         WaitParams
	cap            time.Duration
	pollInterval   time.Duration
	reportInterval ReportInterval
	out            io.Writer
	journal        journal.Journal
	logger         *logrus.Entry
}

// NewMeasurer creates a Measurer polling every pollInterval, with the default
// cap of params and the Standard report interval.
func NewMeasurer(params WaitParams, pollInterval time.Duration, logger *logrus.Entry) *Measurer {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &Measurer{
		params:         params,
		cap:            params.DefaultCap(),
		pollInterval:   pollInterval,
		reportInterval: Standard,
		logger:         logger,
	}
}

// WithCap overrides the time allowed for convergence.
func (m *Measurer) WithCap(d time.Duration) *Measurer {
	m.cap = d
	return m
}

// WithReportInterval sets the cadence of progress reports.
func (m *Measurer) WithReportInterval(r ReportInterval) *Measurer {
	m.reportInterval = r
	return m
}

// WithOutput sets where progress reports are written. Nil means stdout.
func (m *Measurer) WithOutput(out io.Writer) *Measurer {
	m.out = out
	return m
}

// WithJournal records measurements in j.
func (m *Measurer) WithJournal(j journal.Journal) *Measurer {
	m.journal = j
	return m
}

// Cap returns the time allowed for convergence.
func (m *Measurer) Cap() time.Duration {
	return m.cap
}

// Measure polls the nodes until enough of them share the majority tip and
// returns the elapsed time. It never returns a duration above the cap.
func (m *Measurer) Measure(nodes []Node) (time.Duration, error) {
	return m.measure(nodes, "sync", nil)
}

func (m *Measurer) measure(nodes []Node, label string, progress *monitor.Progress) (time.Duration, error) {
	required := m.params.Required()
	start := time.Now()
	lastReport := start

	for {
		snapshot := TakeSnapshot(nodes)
		elapsed := time.Since(start)
		height, tip, count := snapshot.Majority()

		if progress != nil && time.Since(lastReport) >= m.reportInterval.Duration() {
			progress.Report(snapshot.statuses())
			lastReport = time.Now()
		}

		if count >= required && elapsed <= m.cap {
			m.logger.WithFields(logrus.Fields{
				"label":   label,
				"height":  height,
				"tip":     tip,
				"agree":   count,
				"elapsed": elapsed,
			}).Debug("nodes in sync")
			return elapsed, nil
		}

		if elapsed >= m.cap {
			return m.cap, &SyncTimeoutExceededError{
				Label:    label,
				Cap:      m.cap,
				Required: required,
				Achieved: snapshot,
			}
		}

		sleep := m.pollInterval
		if remaining := m.cap - elapsed; remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}

// MeasureAndLog is Measure with progress reports, a summary log line and a
// journal record under label.
func (m *Measurer) MeasureAndLog(nodes []Node, label string) (time.Duration, error) {
	progress := monitor.NewProgress(m.out, label)
	progress.Info("waiting for %d of %d nodes to sync (cap %s)", m.params.Required(), len(nodes), m.cap)

	elapsed, err := m.measure(nodes, label, progress)

	outcome := "synced"
	detail := elapsed.String()
	if err != nil {
		outcome = "timeout"
		detail = err.Error()
		progress.Failure(err)
		m.logger.WithField("label", label).WithError(err).Error("sync measurement failed")
	} else {
		progress.Success("synced in %s", elapsed)
		m.logger.WithFields(logrus.Fields{
			"label":   label,
			"elapsed": elapsed,
		}).Info("sync measurement")
	}

	if m.journal != nil {
		_, jerr := m.journal.Append(journal.Record{
			Kind:    journal.SyncMeasurement,
			Subject: label,
			Outcome: outcome,
			Detail:  detail,
		})
		if jerr != nil {
			m.logger.WithError(jerr).Warn("failed to write journal")
		}
	}

	return elapsed, err
}

// MeasureAndLog measures the sync time of nodes with the default cap of
// params and writes progress to stdout every interval.
func MeasureAndLog(nodes []Node, params WaitParams, label string, interval ReportInterval, pollInterval time.Duration, logger *logrus.Entry) (time.Duration, error) {
	return NewMeasurer(params, pollInterval, logger).
		WithReportInterval(interval).
		MeasureAndLog(nodes, label)
}

// AssertAreInSync checks, in a single round, that every node is reachable and
// on the same tip.
func AssertAreInSync(nodes []Node) error {
	s := TakeSnapshot(nodes)
	if !s.InSync() {
		return &NotInSyncError{Snapshot: s}
	}
	return nil
}

func (m *Measurer) String() string {
	return fmt.Sprintf("%d of %d nodes within %s", m.params.Required(), m.params.NetworkSize, m.cap)
}
