package main

import (
	"log"

	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
)

var tables = []string{
	"messages",
	"message_reactions",
	"message_seen",
	"channel_counters",
	"channel_members",
	"channels",
	"users",
}

func main() {
	cfg := config.Load()
	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	for _, table := range tables {
		log.Printf("Dropping table %s...", table)
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			log.Fatalf("Failed to drop table %s: %v", table, err)
		}
	}
	log.Println("Tables dropped successfully.")
}
