package postgres

// Each service owns its own database; unused tables stay empty.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id       text PRIMARY KEY,
		title    text NOT NULL,
		price    double precision NOT NULL,
		order_id text,
		version  bigint NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         text PRIMARY KEY,
		user_id    text NOT NULL,
		ticket_id  text NOT NULL,
		price      double precision NOT NULL,
		status     text NOT NULL,
		expires_at timestamptz NOT NULL,
		version    bigint NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id         text PRIMARY KEY,
		order_id   text NOT NULL UNIQUE,
		stripe_id  text NOT NULL,
		created_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id             text PRIMARY KEY,
		aggregate_type text NOT NULL,
		aggregate_id   text NOT NULL,
		event_type     text NOT NULL,
		payload        bytea NOT NULL,
		published      boolean NOT NULL DEFAULT false,
		attempts       integer NOT NULL DEFAULT 0,
		last_error     text NOT NULL DEFAULT '',
		created_at     timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (created_at) WHERE NOT published`,
	`CREATE TABLE IF NOT EXISTS dead_letters (
		id         text PRIMARY KEY,
		source     text NOT NULL,
		event_type text NOT NULL,
		payload    bytea NOT NULL,
		reason     text NOT NULL,
		attempts   integer NOT NULL,
		created_at timestamptz NOT NULL
	)`,
}
