package main

import (
	"os"

	"github.com/flagmap/flagmap/server/internal/logger"
	"github.com/flagmap/flagmap/server/presenceservice"
)

func main() {
	if err := presenceservice.Run(); err != nil {
		log := logger.New("presence-service")
		log.Error().Err(err).Msg("service exited with error")
		os.Exit(1)
	}
}
