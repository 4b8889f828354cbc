package logger

import (
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	if os.Getenv("ENV") == "prod" {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(log.DebugLevel)
	}
}

// GetLogger returns an entry annotated with the calling function and file.
func GetLogger() *log.Entry {
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)

	return logger.WithFields(log.Fields{
		"function": fn.Name(),
		"file":     file,
		"line":     line,
	})
}

// Platform returns an entry bound to a dedicated platform channel; every
// outbound platform API call is logged through it with method, resource id
// and outcome. Token values must never be passed here.
func Platform(platform string) *log.Entry {
	return logger.WithFields(log.Fields{
		"channel":  "platform_api",
		"platform": platform,
	})
}
