// FilePath: cmd/main.go
package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/server"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting GreenEye Hub Server v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"   ______                    ______          ",
		"  / ____/_______  ___  ____ / ____/_  _____  ",
		" / / __/ ___/ _ \\/ _ \\/ __ \\/ __/ / / / / _ \\ ",
		"/ /_/ / /  /  __/  __/ / / / /___/ /_/ /  __/ ",
		"\\____/_/   \\___/\\___/_/ /_/_____/\\__, /\\___/  ",
		"                                /____/        ",
		"..............................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
