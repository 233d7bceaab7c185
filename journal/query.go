package journal

import (
	"database/sql"
	"fmt"
)

// PolicyByID returns a single policy record.
func (j *SQLite) PolicyByID(policyID string) (PolicyRecord, error) {
	var (
		rec     PolicyRecord
		tokens  int64
		premium int64
	)

	row := j.db.QueryRow(`
		SELECT policy_id, holder, asset, tokens, plan, ref_price, decimals, premium, issued_at, deadline
		FROM policies
		WHERE policy_id = ?`, policyID)

	err := row.Scan(
		&rec.PolicyID,
		&rec.Holder,
		&rec.Asset,
		&tokens,
		&rec.Plan,
		&rec.RefPrice,
		&rec.Decimals,
		&premium,
		&rec.IssuedAt,
		&rec.Deadline,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return PolicyRecord{}, fmt.Errorf("policy %q not found", policyID)
		}
		return PolicyRecord{}, err
	}

	rec.Tokens = uint64(tokens)
	rec.Premium = uint64(premium)
	return rec, nil
}

// ListPolicies returns every issued policy, oldest first.
func (j *SQLite) ListPolicies() ([]PolicyRecord, error) {
	rows, err := j.db.Query(`
		SELECT policy_id, holder, asset, tokens, plan, ref_price, decimals, premium, issued_at, deadline
		FROM policies
		ORDER BY issued_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PolicyRecord
	for rows.Next() {
		var (
			rec     PolicyRecord
			tokens  int64
			premium int64
		)
		if err := rows.Scan(
			&rec.PolicyID,
			&rec.Holder,
			&rec.Asset,
			&tokens,
			&rec.Plan,
			&rec.RefPrice,
			&rec.Decimals,
			&premium,
			&rec.IssuedAt,
			&rec.Deadline,
		); err != nil {
			return nil, err
		}
		rec.Tokens = uint64(tokens)
		rec.Premium = uint64(premium)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimsByPolicy returns the claims recorded for a policy, oldest first.
// At most one exists per policy today; the shape allows more if partial
// claims ever land.
func (j *SQLite) ClaimsByPolicy(policyID string) ([]ClaimRecord, error) {
	rows, err := j.db.Query(`
		SELECT claim_id, policy_id, amount, paid, settled_at
		FROM claims
		WHERE policy_id = ?
		ORDER BY settled_at ASC`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClaimRecord
	for rows.Next() {
		var (
			rec    ClaimRecord
			amount int64
			paid   int64
		)
		if err := rows.Scan(&rec.ClaimID, &rec.PolicyID, &amount, &paid, &rec.SettledAt); err != nil {
			return nil, err
		}
		rec.Amount = uint64(amount)
		rec.Paid = uint64(paid)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
