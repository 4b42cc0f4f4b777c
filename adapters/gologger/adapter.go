// Package gologger resolves go-logger loggers for the saved objects service
// and bridges them into the go-job runtime.
package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	ServiceLoggerName = "savedobjects"
	JobLoggerName     = "savedobjects.jobs"
)

// Resolve picks the provider logger, then the given logger, then a nop
// logger. An empty name resolves the service logger.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = ServiceLoggerName
	}
	return glog.Resolve(name, provider, logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

// JobLogger returns the go-job logger that queue workers report import job
// outcomes through.
func JobLogger(provider glog.LoggerProvider, logger glog.Logger) job.Logger {
	_, _, _, jobLogger := ResolveForJob(JobLoggerName, provider, logger)
	return jobLogger
}
