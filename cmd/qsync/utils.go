package qsync

import (
	"runtime/debug"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/update"
)

func currentVersion() semver.Version {
	v := version
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return ver
}

func selfUpdate(cmd *cobra.Command) error {
	ver := currentVersion()
	latest, err := selfupdate.UpdateSelf(semver3.MustParse(ver.String()), update.Repository)
	if err != nil {
		return err
	}
	if latest.Version.Equals(semver3.MustParse(ver.String())) {
		success(cmd.ErrOrStderr(), "qsync %s is the latest release", ver)
		return nil
	}
	success(cmd.ErrOrStderr(), "updated to v%s; re-run the command", latest.Version)
	return nil
}
