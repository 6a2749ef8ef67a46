package logic

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// logListener forwards engine events for one file to logrus.
type logListener struct {
	log  *logrus.Entry
	step int64
	last int64
}

// progressSteps bounds the progress lines logged per file.
const progressSteps = 20

func newLogListener(logger *logrus.Logger, file string) *logListener {
	return &logListener{log: logger.WithField("file", file)}
}

func (l *logListener) OnProgress(done, total int64) {
	if l.step == 0 {
		l.step = max(1, total/progressSteps)
	}

	if done-l.last < l.step && done != total {
		return
	}

	l.last = done

	percent := 100.0
	if total > 0 {
		percent = float64(done) * 100 / float64(total)
	}

	l.log.WithFields(logrus.Fields{
		"done":    humanize.IBytes(uint64(max(0, done))),  //nolint:gosec
		"total":   humanize.IBytes(uint64(max(0, total))), //nolint:gosec
		"percent": humanize.FtoaWithDigits(percent, 1),
	}).Debug("progress")
}

func (l *logListener) OnSuccess(message, destination string) {
	l.log.WithField("destination", destination).Info(message)
}

func (l *logListener) OnError(message string, cause error) {
	l.log.WithError(cause).Error(message)
}

func (l *logListener) OnLog(message string) {
	l.log.Info(message)
}

// newLogger configures the level from the quiet and verbose settings.
func newLogger(quiet, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	switch {
	case quiet:
		logger.SetLevel(logrus.ErrorLevel)
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}
