package main

import (
	"log"

	"archivist/internal/server"
)

func main() {
	log.Println("Starting archivist server...")
	srv := server.NewServer()
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
