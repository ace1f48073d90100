// Package backend is the row-level table store every entity service talks to.
//
// It offers what the services need from a hosted data backend: per-table
// select/insert/update/delete with server-side filters and ordering, named
// procedures for aggregate queries, and a change notification per mutated row.
// Rows travel in wire format (snake_case keys); reshaping them into
// application types is the caller's job.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/metrics"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Tables are the tables exposed through the client.
var Tables = []string{
	"profiles",
	"tasks",
	"projects",
	"calendar_events",
	"user_activity",
	"focus_sessions",
	"focus_settings",
	"focus_streaks",
}

// OwnerColumn identifies the owning account of a row in every exposed table.
const OwnerColumn = "user_id"

type ChangePublisher interface {
	Publish(change realtime.Change)
}

type Client struct {
	database   *sql.DB
	columns    map[string]map[string]bool
	procedures map[string]Procedure
	publisher  ChangePublisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New inspects the schema of every exposed table and returns a client bound to
// it. publisher and m may be nil.
func New(database *sql.DB, publisher ChangePublisher, m *metrics.Metrics, logger zerolog.Logger) (*Client, error) {
	client := &Client{
		database:   database,
		columns:    make(map[string]map[string]bool, len(Tables)),
		procedures: make(map[string]Procedure),
		publisher:  publisher,
		metrics:    m,
		logger:     logger.With().Str("component", "backend").Logger(),
	}

	for _, table := range Tables {
		columns, err := loadColumns(database, table)
		if err != nil {
			return nil, err
		}
		client.columns[table] = columns
	}

	client.RegisterProcedure(DailyActivityProcedure, dailyActivity)
	return client, nil
}

func loadColumns(database *sql.DB, table string) (map[string]bool, error) {
	rows, err := database.Query(fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid          int
			name         string
			columnType   string
			notNull      int
			defaultValue sql.NullString
			primaryKey   int
		)
		if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scanning schema of %s: %w", table, err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return columns, nil
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

type operation string

const (
	operationSelect operation = "select"
	operationInsert operation = "insert"
	operationUpsert operation = "upsert"
	operationUpdate operation = "update"
	operationDelete operation = "delete"
)

type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

type filter struct {
	column   string
	operator string
	value    any
}

type order struct {
	column    string
	direction Direction
}

// Query is built with From and run with Execute or Single. Builder methods
// record the first mistake and report it when the query runs.
type Query struct {
	client    *Client
	table     string
	operation operation
	columns   []string
	values    Row
	conflict  string
	filters   []filter
	orders    []order
	limit     int
	err       error
}

func (client *Client) From(table string) *Query {
	query := &Query{client: client, table: table, operation: operationSelect}
	if _, ok := client.columns[table]; !ok {
		query.err = invalidQuery(table, "unknown table")
	}
	return query
}

func (query *Query) checkColumn(column string) {
	if query.err != nil {
		return
	}
	if !query.client.columns[query.table][column] {
		query.err = invalidQuery(query.table, "unknown column %q", column)
	}
}

func (query *Query) setMutation(op operation, values Row) *Query {
	if query.err != nil {
		return query
	}
	if query.operation != operationSelect {
		query.err = invalidQuery(query.table, "%s already set on query", query.operation)
		return query
	}
	query.operation = op
	query.values = make(Row, len(values))
	for column, value := range values {
		query.checkColumn(column)
		query.values[column] = value
	}
	return query
}

func (query *Query) Select(columns ...string) *Query {
	for _, column := range columns {
		if column != "*" {
			query.checkColumn(column)
		}
	}
	query.columns = columns
	return query
}

func (query *Query) Insert(row Row) *Query {
	return query.setMutation(operationInsert, row)
}

// Upsert inserts row or, when conflictColumn collides, updates the existing row
// with every provided column except the identity and creation time.
func (query *Query) Upsert(row Row, conflictColumn string) *Query {
	query.checkColumn(conflictColumn)
	query.conflict = conflictColumn
	return query.setMutation(operationUpsert, row)
}

func (query *Query) Update(row Row) *Query {
	return query.setMutation(operationUpdate, row)
}

func (query *Query) Delete() *Query {
	return query.setMutation(operationDelete, nil)
}

func (query *Query) where(column, operator string, value any) *Query {
	query.checkColumn(column)
	query.filters = append(query.filters, filter{column: column, operator: operator, value: value})
	return query
}

func (query *Query) Eq(column string, value any) *Query  { return query.where(column, "=", value) }
func (query *Query) Neq(column string, value any) *Query { return query.where(column, "<>", value) }
func (query *Query) Gt(column string, value any) *Query  { return query.where(column, ">", value) }
func (query *Query) Gte(column string, value any) *Query { return query.where(column, ">=", value) }
func (query *Query) Lt(column string, value any) *Query  { return query.where(column, "<", value) }
func (query *Query) Lte(column string, value any) *Query { return query.where(column, "<=", value) }

// IsNull matches rows whose column is NULL.
func (query *Query) IsNull(column string) *Query { return query.where(column, "IS NULL", nil) }

func (query *Query) Order(column string, direction Direction) *Query {
	query.checkColumn(column)
	query.orders = append(query.orders, order{column: column, direction: direction})
	return query
}

func (query *Query) Limit(limit int) *Query {
	query.limit = limit
	return query
}

// Execute runs the query and returns every matching or affected row.
func (query *Query) Execute(ctx context.Context) ([]Row, error) {
	rows, err := query.run(ctx)
	query.client.metrics.RecordBackendOperation(query.table, string(query.operation), err)
	return rows, err
}

// Single runs the query and expects exactly one row. Zero rows is reported
// with CodeNotFound.
func (query *Query) Single(ctx context.Context) (Row, error) {
	if query.operation == operationSelect && query.limit == 0 {
		query.limit = 2
	}
	rows, err := query.Execute(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &Error{Code: CodeNotFound, Table: query.table, Message: "no rows matched, expected one"}
	case 1:
		return rows[0], nil
	}
	return nil, invalidQuery(query.table, "%d rows matched, expected one", len(rows))
}

func (query *Query) run(ctx context.Context) ([]Row, error) {
	if query.err != nil {
		return nil, query.err
	}

	statement, args, err := query.build()
	if err != nil {
		return nil, err
	}

	sqlRows, err := query.client.database.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, translate(query.table, fmt.Sprintf("%s failed", query.operation), err)
	}
	rows, err := scanRows(sqlRows)
	if err != nil {
		return nil, translate(query.table, fmt.Sprintf("%s failed", query.operation), err)
	}

	query.publish(rows)
	return rows, nil
}

func (query *Query) build() (string, []any, error) {
	var builder strings.Builder
	var args []any

	switch query.operation {
	case operationSelect:
		builder.WriteString("SELECT ")
		builder.WriteString(query.selectList())
		builder.WriteString(" FROM ")
		builder.WriteString(quote(query.table))
	case operationInsert, operationUpsert:
		if len(query.filters) > 0 {
			return "", nil, invalidQuery(query.table, "%s does not take filters", query.operation)
		}
		if query.client.columns[query.table]["id"] {
			if id, ok := query.values["id"]; !ok || id == nil || id == "" {
				query.values["id"] = uuid.New().String()
			}
		}
		columns := sortedColumns(query.values)
		placeholders := make([]string, len(columns))
		quoted := make([]string, len(columns))
		for i, column := range columns {
			placeholders[i] = "?"
			quoted[i] = quote(column)
			args = append(args, normalize(query.values[column]))
		}
		fmt.Fprintf(&builder, "INSERT INTO %s (%s) VALUES (%s)",
			quote(query.table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		if query.operation == operationUpsert {
			var assignments []string
			for _, column := range columns {
				if column == "id" || column == "created_at" || column == query.conflict {
					continue
				}
				assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", quote(column), quote(column)))
			}
			if len(assignments) == 0 {
				fmt.Fprintf(&builder, " ON CONFLICT(%s) DO NOTHING", quote(query.conflict))
			} else {
				fmt.Fprintf(&builder, " ON CONFLICT(%s) DO UPDATE SET %s", quote(query.conflict), strings.Join(assignments, ", "))
			}
		}
		builder.WriteString(" RETURNING *")
		return builder.String(), args, nil
	case operationUpdate:
		if len(query.values) == 0 {
			return "", nil, invalidQuery(query.table, "update without values")
		}
		if len(query.filters) == 0 {
			return "", nil, invalidQuery(query.table, "update without filters")
		}
		columns := sortedColumns(query.values)
		assignments := make([]string, len(columns))
		for i, column := range columns {
			assignments[i] = quote(column) + " = ?"
			args = append(args, normalize(query.values[column]))
		}
		fmt.Fprintf(&builder, "UPDATE %s SET %s", quote(query.table), strings.Join(assignments, ", "))
	case operationDelete:
		if len(query.filters) == 0 {
			return "", nil, invalidQuery(query.table, "delete without filters")
		}
		fmt.Fprintf(&builder, "DELETE FROM %s", quote(query.table))
	}

	if len(query.filters) > 0 {
		conditions := make([]string, len(query.filters))
		for i, f := range query.filters {
			if f.operator == "IS NULL" {
				conditions[i] = quote(f.column) + " IS NULL"
				continue
			}
			conditions[i] = fmt.Sprintf("%s %s ?", quote(f.column), f.operator)
			args = append(args, normalize(f.value))
		}
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	if query.operation != operationSelect {
		builder.WriteString(" RETURNING *")
		return builder.String(), args, nil
	}

	if len(query.orders) > 0 {
		terms := make([]string, len(query.orders))
		for i, o := range query.orders {
			terms[i] = fmt.Sprintf("%s %s", quote(o.column), o.direction)
		}
		builder.WriteString(" ORDER BY ")
		builder.WriteString(strings.Join(terms, ", "))
	}
	if query.limit > 0 {
		fmt.Fprintf(&builder, " LIMIT %d", query.limit)
	}
	return builder.String(), args, nil
}

func (query *Query) selectList() string {
	if len(query.columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(query.columns))
	for i, column := range query.columns {
		if column == "*" {
			quoted[i] = column
			continue
		}
		quoted[i] = quote(column)
	}
	return strings.Join(quoted, ", ")
}

func (query *Query) publish(rows []Row) {
	if query.client.publisher == nil || query.operation == operationSelect {
		return
	}
	changeType := realtime.ChangeUpdate
	switch query.operation {
	case operationInsert:
		changeType = realtime.ChangeInsert
	case operationDelete:
		changeType = realtime.ChangeDelete
	}
	for _, row := range rows {
		change := realtime.Change{Table: query.table, Type: changeType}
		change.RecordID, _ = row["id"].(string)
		change.OwnerID, _ = row[OwnerColumn].(string)
		query.client.publisher.Publish(change)
	}
}

func sortedColumns(values Row) []string {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func scanRows(sqlRows *sql.Rows) ([]Row, error) {
	defer sqlRows.Close()

	columns, err := sqlRows.Columns()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for sqlRows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := sqlRows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			if raw, ok := values[i].([]byte); ok {
				row[column] = string(raw)
				continue
			}
			row[column] = values[i]
		}
		rows = append(rows, row)
	}
	return rows, sqlRows.Err()
}
