package main

import (
	"log"

	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
)

func main() {
	cfg := config.Load()

	sys, err := db.NewSession(cfg.ScyllaHosts, "system")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB system keyspace: %v", err)
	}
	if err := db.EnsureKeyspace(sys, cfg.Keyspace); err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}
	sys.Close()

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	if err := db.EnsureSchema(session); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	log.Println("Schema created successfully")
}
