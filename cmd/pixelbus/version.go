package main

import "fmt"

var (
	buildTime    = "unknown"
	buildVersion = "dev"
)

func versionString() string {
	return fmt.Sprintf("%s (built: %s)", buildVersion, buildTime)
}
