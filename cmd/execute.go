// Package cmd contains the schoolwijzer command line entry points.
//
// All application logic lives here so main.go stays a minimal shim. The
// dispatch is a plain os.Args switch: the binary has exactly one real mode
// (serve) plus version, migrate, and help.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the schoolwijzer binary.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "migrate":
			return runMigrate()
		case "serve":
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	// No arguments: serve is the only product mode.
	return runServe()
}

func printHelp() {
	fmt.Println("Schoolwijzer - conversational school enrollment assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  schoolwijzer                Start the HTTP API server (default)")
	fmt.Println("  schoolwijzer serve [addr]   Start the HTTP API server on addr")
	fmt.Println("  schoolwijzer migrate        Apply database migrations and exit")
	fmt.Println("  schoolwijzer version        Show version information")
	fmt.Println("  schoolwijzer help           Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY              Gemini API key (provider: gemini)")
	fmt.Println("  OPENAI_API_KEY              OpenAI API key (provider: openai)")
	fmt.Println("  SCHOOLWIJZER_PROVIDER       Chat provider: gemini or openai")
	fmt.Println("  SCHOOLWIJZER_LANG           Response language: nl (default) or en")
	fmt.Println("  SCHOOLWIJZER_POSTGRES_HOST  PostgreSQL host")
	fmt.Println("  DEBUG                       Enable debug logging")
}
