package main

import (
	"context"
	"os"
	"strconv"

	"olas.info/attest/pkg/cmd"
	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/log"
)

//go:generate go run ../../pkg/config/git -o version.go

var (
	Version   = "unknown"
	BuildTime = "0"
	UUID      = ""
)

func main() {
	i, err := strconv.ParseInt(BuildTime, 10, 64)
	if err != nil {
		log.Log(context.Background(), "bad build time", "buildTime", BuildTime, "error", err)
		i = 0
	}
	os.Exit(cmd.Start(&config.BuildFlags{
		Version:   Version,
		BuildTime: i,
		UUID:      UUID,
	}, os.Args[1:]))
}
