// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	policies *csv.Writer
	claims   *csv.Writer
	pf, cf   *os.File
}

func NewCSV(policiesPath, claimsPath string) (*CSV, error) {
	pf, err := os.Create(policiesPath)
	if err != nil {
		return nil, err
	}
	cf, err := os.Create(claimsPath)
	if err != nil {
		pf.Close()
		return nil, err
	}

	pw := csv.NewWriter(pf)
	cw := csv.NewWriter(cf)

	if err := pw.Write([]string{"policy_id", "holder", "asset", "tokens", "plan", "ref_price", "decimals", "premium", "issued_at", "deadline"}); err != nil {
		return nil, err
	}
	if err := cw.Write([]string{"claim_id", "policy_id", "amount", "paid", "settled_at"}); err != nil {
		return nil, err
	}

	pw.Flush()
	if err := pw.Error(); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	return &CSV{pw, cw, pf, cf}, nil
}

func (j *CSV) RecordPolicy(p PolicyRecord) error {
	err := j.policies.Write([]string{
		p.PolicyID,
		p.Holder,
		p.Asset,
		u(p.Tokens),
		strconv.Itoa(int(p.Plan)),
		strconv.FormatInt(p.RefPrice, 10),
		strconv.Itoa(int(p.Decimals)),
		u(p.Premium),
		p.IssuedAt.Format(time.RFC3339),
		p.Deadline.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	j.policies.Flush()
	return j.policies.Error()
}

func (j *CSV) RecordClaim(c ClaimRecord) error {
	err := j.claims.Write([]string{
		c.ClaimID,
		c.PolicyID,
		u(c.Amount),
		u(c.Paid),
		c.SettledAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	j.claims.Flush()
	return j.claims.Error()
}

func (j *CSV) Close() error {
	j.policies.Flush()
	if err := j.policies.Error(); err != nil {
		return err
	}
	j.claims.Flush()
	if err := j.claims.Error(); err != nil {
		return err
	}

	if err := j.pf.Close(); err != nil {
		return err
	}
	return j.cf.Close()
}

func u(x uint64) string {
	return strconv.FormatUint(x, 10)
}
