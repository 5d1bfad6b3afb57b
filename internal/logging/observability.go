package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ObservabilityLogger is the production Backend: a logrus logger emitting
// one JSON object per line, shaped for Loki/structured-log ingestion.
type ObservabilityLogger struct {
	logger *logrus.Logger
}

// NewObservabilityLogger builds a Backend writing JSON lines to os.Stdout (a
// gateway runs in a container where stdout is the log sink).
func NewObservabilityLogger() *ObservabilityLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetLevel(logrus.InfoLevel)
	logger = logger.WithField("service", "language-model-gateway").Logger
	return &ObservabilityLogger{logger: logger}
}

func (o *ObservabilityLogger) Log(level, component, category, requestID, message string, fields map[string]interface{}) {
	entry := o.logger.WithFields(logrus.Fields{
		"component": component,
		"category":  category,
	})
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	switch level {
	case levelDebug:
		entry.Debug(message)
	case levelWarn:
		entry.Warn(message)
	case levelError:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}
