package util

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.util")

func DebugEnabled() bool {
	return etb("EINVOICE_DEBUG")
}

func HttpTraceEnabled() bool {
	return etb("EINVOICE_HTTP_TRACE")
}

func etb(envName string) bool {
	v, ok := os.LookupEnv(envName)
	if !ok {
		return false
	}

	bv, err := strconv.ParseBool(v)

	return err == nil && bv
}

func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// GetEnvDuration parses a time.Duration; invalid values fall back to def with a warning.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.WithField("value", v).Warnf("%s is not a valid duration, using %s", key, def)
		return def
	}
	return d
}
