package main

import (
	"log"

	"glimpse/internal/transport/http"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	if err := http.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
