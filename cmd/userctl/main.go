package main

import (
	"context"
	"flag"
	"log"

	"github.com/adb/usermgmt/internal/userctl"
)

func main() {

	addr := flag.String("a", "http://localhost:8080", "server address")
	flag.Parse()

	ctx := context.Background()
	app := userctl.NewApp(*addr)

	if err := app.Run(ctx, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}

}
