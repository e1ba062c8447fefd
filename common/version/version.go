package version

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

const Name = "LesPas media layer"

var GitCommit string
var Version string

func SetDefaults() {
	if GitCommit != "" && Version != "" {
		return
	}
	build, infoOk := debug.ReadBuildInfo()

	if GitCommit == "" {
		GitCommit = ".dev"
		if infoOk {
			for _, setting := range build.Settings {
				if setting.Key == "vcs.revision" {
					GitCommit = setting.Value
					break
				}
			}
		}
	}

	if Version == "" {
		Version = "unknown"
		if infoOk && build.Main.Version != "" && build.Main.Version != "(devel)" {
			Version = build.Main.Version
		}
	}
}

// Release identifies the build in error reports.
func Release() string {
	SetDefaults()
	return fmt.Sprintf("%s-%s", Version, GitCommit)
}

// UserAgent is sent to the content server when the configuration leaves it
// empty.
func UserAgent() string {
	SetDefaults()
	return "LesPas/" + Version
}

func Print(usingLogger bool) {
	SetDefaults()

	if usingLogger {
		logrus.WithFields(logrus.Fields{
			"version": Version,
			"commit":  GitCommit,
		}).Info("Starting " + Name)
	} else {
		fmt.Println(Name)
		fmt.Println("Version: " + Version)
		fmt.Println("Commit: " + GitCommit)
	}
}
