package main

import (
	"os"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
