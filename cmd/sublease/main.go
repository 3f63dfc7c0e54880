// Command sublease is the terminal client: listing discovery and chat.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

const usage = `usage:
  sublease listings [filters] [-page N] [-ranked]
  sublease chat -peer <user id> [-email e -password p | -token t]`

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "listings":
		err = runListings(os.Args[2:], os.Stdout)
	case "chat":
		err = runChat(os.Args[2:], os.Stdin, os.Stdout)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("sublease %s: %v", os.Args[1], err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
