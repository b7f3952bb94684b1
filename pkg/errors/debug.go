package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// aggregateByTable maps storage tables to the storefront aggregate they belong to.
var aggregateByTable = map[string]string{
	"products":         "product",
	"product_variants": "product",
	"carts":            "cart",
	"cart_items":       "cart",
	"promo_codes":      "promo_code",
	"orders":           "order",
	"order_items":      "order",
	"outbox_events":    "outbox",
}

// ErrorDump is the log-friendly breakdown of an error chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Details    any    `json:"details,omitempty"`
	Aggregate  string `json:"aggregate,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump walks err and collects the typed code, details, the wrapped chain and
// any postgres driver fields.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	d.Aggregate = aggregateOf(d.PGTable, d.PGConstraint)
	return d
}

// Fields returns the non-empty parts of the dump as log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	add("error_code", string(d.Code))
	add("aggregate", d.Aggregate)
	add("pg_code", d.PGCode)
	add("pg_constraint", d.PGConstraint)
	add("pg_table", d.PGTable)
	add("pg_column", d.PGColumn)
	add("pg_detail", d.PGDetail)
	add("pg_message", d.PGMessage)
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.Details != nil {
		fields["error_details"] = d.Details
	}
	return fields
}

// aggregateOf resolves the table, falling back to the constraint name prefix
// when the driver leaves the table empty.
func aggregateOf(table, constraint string) string {
	if aggregate, ok := aggregateByTable[table]; ok {
		return aggregate
	}
	if constraint == "" {
		return ""
	}
	for prefix, aggregate := range aggregateByTable {
		if strings.HasPrefix(constraint, prefix+"_") {
			return aggregate
		}
	}
	return ""
}
