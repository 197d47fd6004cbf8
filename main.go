package main

import (
	"healthtrack-api/core/logger"
	"healthtrack-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
