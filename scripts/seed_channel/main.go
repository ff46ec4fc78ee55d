// Seeds a channel with accepted members for manual testing:
//
//	go run ./scripts/seed_channel -channel 42 -users u1,u2,u3
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
)

func main() {
	channelID := flag.String("channel", "general", "channel id")
	bucketID := flag.String("bucket", "default", "bucket id")
	name := flag.String("name", "", "channel display name (defaults to id)")
	chanType := flag.String("type", "group", "channel type: direct, group, community")
	users := flag.String("users", "", "comma-separated user ids to add as accepted members")
	flag.Parse()

	if *name == "" {
		*name = *channelID
	}
	memberIDs := strings.Split(*users, ",")
	if *chanType == "direct" && len(memberIDs) != 2 {
		log.Fatal("a direct channel has exactly 2 members")
	}

	cfg := config.Load()
	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	err = session.Query(
		`INSERT INTO channels (id, bucket_id, name, channel_type) VALUES (?, ?, ?, ?)`,
		*channelID, *bucketID, *name, *chanType,
	).Exec()
	if err != nil {
		log.Fatalf("Failed to insert channel: %v", err)
	}

	for _, userID := range memberIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		err = session.Query(
			`INSERT INTO users (id, name, active) VALUES (?, ?, true)`,
			userID, userID,
		).Exec()
		if err != nil {
			log.Fatalf("Failed to insert user %s: %v", userID, err)
		}
		err = session.Query(
			`INSERT INTO channel_members (channel_id, user_id, invite_accepted) VALUES (?, ?, true)`,
			*channelID, userID,
		).Exec()
		if err != nil {
			log.Fatalf("Failed to insert member %s: %v", userID, err)
		}
	}

	log.Printf("Channel %s seeded with members: %s", *channelID, *users)
}
