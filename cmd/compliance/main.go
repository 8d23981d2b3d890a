package main

import (
	"log"

	"coldchain/compliance/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}
