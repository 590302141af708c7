package sink

import "github.com/sirupsen/logrus"

// NullSink accepts the CLI/config surface for an optional storage
// backend (document store, search index) without a real driver
// dependency behind it. It logs a single warning on construction and
// no-ops every call after, so a crawl configured with --mongo or
// --elastic still runs end-to-end against the file batch sink alone.
type NullSink struct {
	name string
	log  *logrus.Logger
}

// NewNullSink logs once that name is not wired in this build.
func NewNullSink(name string, log *logrus.Logger) *NullSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("sink", name).Warn("sink_not_configured_in_this_build")
	return &NullSink{name: name, log: log}
}

func (n *NullSink) SavePage(page PageRecord) error { return nil }

func (n *NullSink) Close() error { return nil }
