package cmd

import (
	"log"
	"runtime"

	"github.com/spf13/cobra"
)

type VersionInfo struct {
	MlpipeVersion string
	GoVersion     string
	Compiler      string
	Platform      string
}

func (info *VersionInfo) String() string {
	return "{mlpipe version: " + info.MlpipeVersion + ", Go version: " +
		info.GoVersion + ", Compiler version: " + info.Compiler + ", Platform: " + info.Platform + "}"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version of mlpipe.",
	Long:  "Version of mlpipe.",
	Run: func(cmd *cobra.Command, args []string) {
		info := &VersionInfo{
			MlpipeVersion: "v0.1.0",
			GoVersion:     runtime.Version(),
			Compiler:      runtime.Compiler,
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		}
		log.Println(info.String())
	},
}
