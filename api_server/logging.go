package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func setupLogging(level string) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lv, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", level)
		lv = log.InfoLevel
	}
	log.SetLevel(lv)
}
