package workflow

import (
	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bitbucket.org/mmdatafocus/bakery_backend/workflow"

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// finishSpan records the outcome of an operation on its span.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// logFailure logs business rejections at warn and anything else at error.
func logFailure(logger *logrus.Logger, moduleName, funcName string, fields logrus.Fields, err error) {
	if logger == nil || err == nil {
		return
	}
	if utils.ErrorKind(err) != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
		}).WithFields(fields).Warn(err.Error())
		return
	}
	config.LogError(logger, moduleName, funcName, "unexpected failure", fields, err)
}

func loggerOrDefault(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
