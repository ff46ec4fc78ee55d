package db

import (
	"time"

	"github.com/gocql/gocql"
)

type Session struct {
	*gocql.Session
}

func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &Session{Session: session}, nil
}

// EnsureKeyspace creates the chat keyspace. Connect with keyspace "system"
// before calling; schema management belongs to migrations in production.
func EnsureKeyspace(sys *Session, keyspace string) error {
	return sys.Query(`CREATE KEYSPACE IF NOT EXISTS ` + keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id text PRIMARY KEY,
		name text,
		picture text,
		active boolean
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id text PRIMARY KEY,
		bucket_id text,
		name text,
		channel_type text
	)`,
	`CREATE TABLE IF NOT EXISTS channel_members (
		channel_id text,
		user_id text,
		invite_accepted boolean,
		PRIMARY KEY (channel_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		channel_id text,
		id bigint,
		sender_id text,
		text text,
		file_ref text,
		created_at timestamp,
		PRIMARY KEY (channel_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
		message_id bigint,
		user_id text,
		reaction text,
		created_at timestamp,
		PRIMARY KEY (message_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS message_seen (
		message_id bigint,
		user_id text,
		seen_at timestamp,
		PRIMARY KEY (message_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS channel_counters (
		user_id text,
		channel_id text,
		unread_count counter,
		PRIMARY KEY (user_id, channel_id)
	)`,
}

// EnsureSchema creates every table the core reads or writes.
func EnsureSchema(s *Session) error {
	for _, stmt := range schema {
		if err := s.Query(stmt).Exec(); err != nil {
			return err
		}
	}
	return nil
}
