package main

import (
	"context"
	"log"

	"github.com/emsuite/authcore/internal/authctl"
	"github.com/emsuite/authcore/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := authctl.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
