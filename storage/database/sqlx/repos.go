package sqlxrepos

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// executor picks the per-call override when one is supplied, usually a transaction.
func executor(db core.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return db
}

func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// named expands a named query against arg and rebinds it for postgres.
func named(query string, arg interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding named query")
	}
	return rebind(q), args, nil
}

// in expands slice bindvars and rebinds the query for postgres.
func in(query string, args ...interface{}) (string, []interface{}, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding IN query")
	}
	return rebind(q), expanded, nil
}

// JSONB column plumbing shared by the row types.

func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling JSONB column")
	}
	return data, nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return errors.New("JSONB column is not a byte slice")
	}
	return errors.Wrap(json.Unmarshal(data, dest), "unmarshalling JSONB column")
}
