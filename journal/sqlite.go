package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordPolicy(p PolicyRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO policies
		(policy_id, holder, asset, tokens, plan, ref_price, decimals, premium, issued_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PolicyID, p.Holder, p.Asset, int64(p.Tokens), p.Plan,
		p.RefPrice, p.Decimals, int64(p.Premium), p.IssuedAt, p.Deadline,
	)
	return err
}

func (j *SQLite) RecordClaim(c ClaimRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO claims
		(claim_id, policy_id, amount, paid, settled_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ClaimID, c.PolicyID, int64(c.Amount), int64(c.Paid), c.SettledAt,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
