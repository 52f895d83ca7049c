package main

import (
	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/config"
	"github.com/mcp-events/ticketflow/internal/appServer"
)

func main() {
	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config: %v", err)
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config: %v", err)
	}

	appServer.NewServer(cfg)
}
