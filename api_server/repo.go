package main

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	errKeyDisabled        = errors.New("api key disabled")
	errInsufficientCredit = errors.New("insufficient credit")
)

// keyStore is the persistent side of API key handling.
type keyStore interface {
	GetAPIKey(ctx context.Context, key string) (*APIKeyRow, error)
	UpsertAPIKeyAddCredit(ctx context.Context, apiKey, merchantName string, creditDelta int64) error
	SetAPIKeyActive(ctx context.Context, apiKey string, active bool) error
	ConsumeCredit(ctx context.Context, apiKey, action string) error
	GetUsage(ctx context.Context, apiKey string) (Usage, error)
	Stats(ctx context.Context, top int) (*KeysStatsResp, error)
}

type Repo struct {
	db *sql.DB
}

var _ keyStore = (*Repo)(nil)

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddlKeys = `
CREATE TABLE IF NOT EXISTS api_keys (
  api_key VARCHAR(128) NOT NULL COMMENT 'Client API key',
  merchant_name VARCHAR(128) NOT NULL DEFAULT '' COMMENT 'Merchant name',
  is_active TINYINT(1) NOT NULL DEFAULT 1 COMMENT '1=active,0=disabled',
  credit BIGINT NOT NULL DEFAULT 0 COMMENT 'Remaining signatures',
  total_credit BIGINT NOT NULL DEFAULT 0 COMMENT 'Total credited (lifetime, not deducted)',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (api_key),
  KEY idx_is_active (is_active)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='API keys + sign credits';`

	const ddlUsage = `
CREATE TABLE IF NOT EXISTS sign_usage (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  api_key VARCHAR(128) NOT NULL,
  action VARCHAR(16) NOT NULL COMMENT 'detail/reply',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  KEY idx_api_key_action (api_key, action),
  KEY idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='One row per issued token';`

	if _, err := r.db.ExecContext(ctx, ddlKeys); err != nil {
		return errors.Wrap(err, "create api_keys")
	}
	// older databases may predate merchant_name
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE api_keys ADD COLUMN merchant_name VARCHAR(128) NOT NULL DEFAULT '' COMMENT 'Merchant name'`); err != nil {
		// MySQL duplicate column name: Error 1060
		if !strings.Contains(err.Error(), "Duplicate column name") {
			return errors.Wrap(err, "alter api_keys")
		}
	}
	if _, err := r.db.ExecContext(ctx, ddlUsage); err != nil {
		return errors.Wrap(err, "create sign_usage")
	}
	return nil
}

func (r *Repo) GetAPIKey(ctx context.Context, key string) (*APIKeyRow, error) {
	const q = `SELECT api_key, merchant_name, is_active, credit, total_credit, created_at, updated_at FROM api_keys WHERE api_key = ?`
	row := r.db.QueryRowContext(ctx, q, key)
	var k APIKeyRow
	var active int
	if err := row.Scan(&k.Key, &k.MerchantName, &active, &k.Credit, &k.TotalCredit, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.IsActive = active != 0
	return &k, nil
}

// UpsertAPIKeyAddCredit creates the key with credit=delta, or adds delta to
// an existing key and re-activates it. merchant_name only changes when non-empty.
func (r *Repo) UpsertAPIKeyAddCredit(ctx context.Context, apiKey string, merchantName string, creditDelta int64) error {
	const q = `
INSERT INTO api_keys (api_key, merchant_name, is_active, credit, total_credit)
VALUES (?, ?, 1, ?, ?)
ON DUPLICATE KEY UPDATE
  merchant_name = IF(VALUES(merchant_name) <> '', VALUES(merchant_name), merchant_name),
  is_active = 1,
  credit = credit + VALUES(credit),
  total_credit = total_credit + VALUES(total_credit)
`
	_, err := r.db.ExecContext(ctx, q, apiKey, merchantName, creditDelta, creditDelta)
	return err
}

func (r *Repo) SetAPIKeyActive(ctx context.Context, apiKey string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := r.db.ExecContext(ctx, `UPDATE api_keys SET is_active = ? WHERE api_key = ?`, v, apiKey)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for unchanged rows too; confirm the key exists
		if _, err := r.GetAPIKey(ctx, apiKey); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeCredit atomically checks and deducts one credit, then records the usage row.
func (r *Repo) ConsumeCredit(ctx context.Context, apiKey, action string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var isActive int
	var credit int64
	if err := tx.QueryRowContext(ctx, `SELECT is_active, credit FROM api_keys WHERE api_key = ? FOR UPDATE`, apiKey).Scan(&isActive, &credit); err != nil {
		return err
	}
	if isActive == 0 {
		return errKeyDisabled
	}
	if credit < 1 {
		return errInsufficientCredit
	}

	if _, err := tx.ExecContext(ctx, `UPDATE api_keys SET credit = credit - 1 WHERE api_key = ?`, apiKey); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sign_usage (api_key, action) VALUES (?, ?)`, apiKey, action); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) GetUsage(ctx context.Context, apiKey string) (Usage, error) {
	var u Usage
	rows, err := r.db.QueryContext(ctx, `SELECT action, COUNT(*) FROM sign_usage WHERE api_key = ? GROUP BY action`, apiKey)
	if err != nil {
		return u, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return u, err
		}
		u.add(action, n)
	}
	return u, rows.Err()
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 3*time.Second)
}
