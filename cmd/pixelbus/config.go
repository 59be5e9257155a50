package main

import (
	"github.com/callebjorkell/pixelbus/internal/config"
	log "github.com/sirupsen/logrus"
)

func readConfig(path string) (*config.Config, error) {
	if path == "" {
		log.Debug("No config file given, using defaults")
		return config.Default(), nil
	}
	log.Debugf("Reading config from %s", path)
	return config.Load(path)
}
