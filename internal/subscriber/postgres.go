package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const selectFilterDocument = `SELECT ifc_xml FROM subscriber_ifcs WHERE public_id = $1`

// PostgresConnector reads the subscriber_ifcs table created by
// migrations.RunPostgres.
type PostgresConnector struct {
	db *sql.DB
}

func NewPostgresConnector(db *sql.DB) *PostgresConnector {
	return &PostgresConnector{db: db}
}

func (c *PostgresConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	var doc string
	err := c.db.QueryRowContext(ctx, selectFilterDocument, identity).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgresql query failed: %w", err)
	}
	return doc, true, nil
}
