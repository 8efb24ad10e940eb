package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines a single-row INSERT ... ON CONFLICT statement.
type UpsertConfig struct {
	Table        string   // target table (e.g., "gasoline_station")
	Columns      []string // all columns being inserted, bound as $1..$n
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
	Returning    []string // columns returned from the written row
}

// UpsertStatement builds the SQL for cfg. Arguments are positional in
// Columns order.
func UpsertStatement(cfg UpsertConfig) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}
	if len(updateCols) == 0 {
		return "", eris.New("db: upsert: nothing to update on conflict")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	setClauses := make([]string, len(updateCols))
	for i, col := range updateCols {
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", QuoteIdent(col), QuoteIdent(col))
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		QuoteTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	if len(cfg.Returning) > 0 {
		sql += " RETURNING " + quoteAndJoin(cfg.Returning)
	}
	return sql, nil
}

// QuoteTable handles schema-qualified table names like "geo.municipal_boundaries".
func QuoteTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// QuoteIdent quotes a single identifier.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// IndexName derives an unqualified index name for a column of table.
func IndexName(table, column string) string {
	return "idx_" + strings.ReplaceAll(table, ".", "_") + "_" + column
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
