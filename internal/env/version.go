package env

import (
	"runtime/debug"

	"github.com/pkg/errors"
)

func GetBuildVersion() (versionInfo VersionInfo, err error) {
	if BuildVersion == "" {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			err = errors.New("build information is not embedded in this binary")
			return
		}
		BuildVersion = info.Main.Version
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Commit = setting.Value
			}
		}
	}

	versionInfo.BuildVersion = BuildVersion
	versionInfo.Commit = Commit
	return
}
