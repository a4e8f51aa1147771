package main

import (
	"log"

	corecmd "github.com/m3rciful/insurebot/core/cmd"
	"github.com/m3rciful/insurebot/internal/app"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatalf("insurebot: %v", err)
	}
}
