package main

import (
	"context"

	"github.com/dmitrijs2005/farmadvisor/internal/server"
	"github.com/dmitrijs2005/farmadvisor/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()
	server.NewApp(cfg).Run(context.Background())
}
