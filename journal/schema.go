// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS policies (
	policy_id TEXT PRIMARY KEY,
	holder TEXT NOT NULL,
	asset TEXT NOT NULL,
	tokens INTEGER NOT NULL,
	plan INTEGER NOT NULL,
	ref_price INTEGER NOT NULL,
	decimals INTEGER NOT NULL,
	premium INTEGER NOT NULL,
	issued_at DATETIME NOT NULL,
	deadline DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS claims (
	claim_id TEXT PRIMARY KEY,
	policy_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	paid INTEGER NOT NULL,
	settled_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_policy ON claims(policy_id);
`
