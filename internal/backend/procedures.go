package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Procedure is a named server-side routine callable through RPC.
type Procedure func(ctx context.Context, database *sql.DB, params Row) ([]Row, error)

// DailyActivityProcedure aggregates user_activity into one row per calendar day.
//
// Params: user_id, start_date and end_date (inclusive, YYYY-MM-DD) and
// utc_offset_minutes, the offset of the zone that defines a calendar day.
// Each returned row has date, the averaged focus_score, energy_level and
// productivity_score, the summed tasks_completed, focus_minutes and
// flow_state_minutes, and entries. Days without activity report zeros.
const DailyActivityProcedure = "get_daily_activity"

// maxProcedureDays bounds the day series a single aggregation may generate.
const maxProcedureDays = 366

func (client *Client) RegisterProcedure(name string, procedure Procedure) {
	client.procedures[name] = procedure
}

func (client *Client) RPC(ctx context.Context, name string, params Row) ([]Row, error) {
	procedure, ok := client.procedures[name]
	if !ok {
		return nil, &Error{Code: CodeProcedureNotFound, Message: fmt.Sprintf("procedure %q is not registered", name)}
	}
	rows, err := procedure(ctx, client.database, params)
	client.metrics.RecordBackendOperation(name, "rpc", err)
	if err != nil {
		return nil, translate("", fmt.Sprintf("procedure %s failed", name), err)
	}
	return rows, nil
}

const dailyActivityQuery = `
WITH RECURSIVE days(day) AS (
    SELECT date(?)
    UNION ALL
    SELECT date(day, '+1 day') FROM days WHERE day < date(?)
)
SELECT
    days.day                                 AS date,
    COALESCE(AVG(a.focus_score), 0.0)        AS focus_score,
    COALESCE(AVG(a.energy_level), 0.0)       AS energy_level,
    COALESCE(AVG(a.productivity_score), 0.0) AS productivity_score,
    COALESCE(SUM(a.tasks_completed), 0)      AS tasks_completed,
    COALESCE(SUM(a.focus_minutes), 0)        AS focus_minutes,
    COALESCE(SUM(a.flow_state_minutes), 0)   AS flow_state_minutes,
    COUNT(a.id)                              AS entries
FROM days
LEFT JOIN user_activity a
    ON a.user_id = ? AND date(a.timestamp, ?) = days.day
GROUP BY days.day
ORDER BY days.day`

func dailyActivity(ctx context.Context, database *sql.DB, params Row) ([]Row, error) {
	decoder := NewDecoder(params)
	userID := decoder.String("user_id")
	startText := decoder.String("start_date")
	endText := decoder.String("end_date")
	offsetMinutes := decoder.Int("utc_offset_minutes")
	if err := decoder.Err(); err != nil {
		return nil, &Error{Code: CodeInvalidQuery, Message: "invalid procedure parameters", Err: err}
	}

	start, err := time.Parse(DateLayout, startText)
	if err != nil {
		return nil, &Error{Code: CodeInvalidQuery, Message: "invalid start_date", Err: err}
	}
	end, err := time.Parse(DateLayout, endText)
	if err != nil {
		return nil, &Error{Code: CodeInvalidQuery, Message: "invalid end_date", Err: err}
	}
	if end.Before(start) {
		return nil, &Error{Code: CodeInvalidQuery, Message: "end_date is before start_date"}
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxProcedureDays {
		return nil, &Error{Code: CodeInvalidQuery, Message: fmt.Sprintf("range of %d days exceeds %d", days, maxProcedureDays)}
	}

	modifier := fmt.Sprintf("%+d minutes", offsetMinutes)
	sqlRows, err := database.QueryContext(ctx, dailyActivityQuery, startText, endText, userID, modifier)
	if err != nil {
		return nil, err
	}
	return scanRows(sqlRows)
}
