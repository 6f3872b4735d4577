package main

import (
	"context"
	"log"
	"os"
	"slices"

	"github.com/okhaimie-dev/PallyApp/internal/buildinfo"
	"github.com/okhaimie-dev/PallyApp/internal/server"
	"github.com/okhaimie-dev/PallyApp/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	// -backup uploads one snapshot and exits
	if slices.Contains(os.Args[1:], "-backup") {
		key, err := app.Backup(ctx)
		if err != nil {
			app.Close()
			log.Fatalf("%v", err)
		}
		log.Printf("backup written to %s", key)
		return
	}

	app.Run(ctx)

}
