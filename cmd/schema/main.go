package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/videosearch-backend/internal/app"
)

func main() {
	application, err := app.New(app.Options{Store: true})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	created, err := application.Store.EnsureTables(context.Background())
	if err != nil {
		fmt.Printf("schema setup failed: %v\n", err)
		os.Exit(1)
	}

	if len(created) == 0 {
		fmt.Println("All tables already present.")
		return
	}
	fmt.Printf("Created %d table(s):\n", len(created))
	for _, name := range created {
		fmt.Printf("  %s\n", name)
	}
}
