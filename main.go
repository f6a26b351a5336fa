package main

import (
	"fmt"
	"log/slog"
	"os"

	app "github.com/rocketscienceinc/kittycard-backend/internal"
	"github.com/rocketscienceinc/kittycard-backend/internal/config"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := config.MustLoad("./config.yml")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.SlogLevel()}))

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}
