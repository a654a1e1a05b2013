package alert

import (
	"fmt"
	"log/syslog"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	gokitsyslog "github.com/go-kit/log/syslog"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/checks"
)

// Tag identifies this tool in the system log.
const Tag = "btrfs-check"

// Sink delivers alerts to the system log and mirrors them to the process
// logger. Delivery is fire and forget: a failed write is dropped, never
// retried, and never fails the run.
type Sink struct {
	syslogger log.Logger
	logger    log.Logger
}

// NewSink connects to the local syslog daemon. When the connection fails
// (containers without /dev/log, typically) the sink still works through
// the process logger alone and the error is returned for the caller to
// log.
func NewSink(logger log.Logger) (*Sink, error) {
	s := &Sink{logger: logger}
	w, err := syslog.New(syslog.LOG_WARNING|syslog.LOG_DAEMON, Tag)
	if err != nil {
		return s, fmt.Errorf("connect syslog: %w", err)
	}
	s.syslogger = gokitsyslog.NewSyslogLogger(w, log.NewLogfmtLogger)
	return s, nil
}

// newSinkWithWriter is the seam for tests.
func newSinkWithWriter(w gokitsyslog.SyslogWriter, logger log.Logger) *Sink {
	return &Sink{
		syslogger: gokitsyslog.NewSyslogLogger(w, log.NewLogfmtLogger),
		logger:    logger,
	}
}

// Emit sends one advisory. The syslog line and the mirrored process-log
// line carry the same fields.
func (s *Sink) Emit(e checks.AlertEvent) {
	keyvals := []interface{}{
		"severity", e.Severity,
		"msg", Message(e),
		"mountpoint", e.MountPoint,
		"pool", e.Pool,
		"suggest", e.Command,
	}
	if s.syslogger != nil {
		level.Warn(s.syslogger).Log(keyvals...)
	}
	level.Warn(s.logger).Log(keyvals...)
}

// Message renders the human-readable part of an alert.
func Message(e checks.AlertEvent) string {
	used := humanize.IBytes(uint64(e.UsedBytes))
	total := humanize.IBytes(uint64(e.TotalBytes))
	if e.Pool == btrfs.PoolMetadata {
		return fmt.Sprintf("metadata chunks on %s are %d%% used (%s of %s allocated), allocation headroom is nearly exhausted",
			e.MountPoint, e.UsedPercent, used, total)
	}
	return fmt.Sprintf("data chunks on %s are only %d%% used (%s of %s allocated), balance would reclaim sparse chunks",
		e.MountPoint, e.UsedPercent, used, total)
}
