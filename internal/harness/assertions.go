package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store columns holding addresses or base-unit amounts. final_state
// compares them the way traces render them: by alias and in whole units.
var (
	addressColumns = map[string]bool{"address": true, "asset": true, "creator": true, "holder": true, "owner": true}
	amountColumns  = map[string]bool{"total_supply": true, "sold": true, "raised": true, "held": true, "amount": true, "balance": true}
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EntryOp:
				outcome := "ok"
				if event.Error != "" {
					outcome = event.Error
				}
				fmt.Fprintf(&buf, "  step %d: %s from=%s %v -> %s\n", event.Step, event.Op, event.From, event.Args, outcome)
			case EntryEvent:
				fmt.Fprintf(&buf, "    [%d] %s %s %v\n", event.Seq, event.Kind, event.Asset, event.Fields)
			}
		}
	}
	return buf.String()
}

// assertTraceContains checks if the trace contains an event of the given
// kind whose fields include the expected ones (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EntryEvent && event.Kind == assertion.Kind {
			if matchFields(event, assertion.Fields) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s with fields %v", assertion.Kind, assertion.Fields),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if event kinds appear in the specified order.
// Kinds don't need to be consecutive (intervening events are allowed), and
// a kind may repeat: each expected entry matches the next event of that
// kind after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, kind := range assertion.Kinds {
		found := false
		for ; pos < len(trace); pos++ {
			if trace[pos].Type == EntryEvent && trace[pos].Kind == kind {
				found = true
				pos++
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("no %s after %v", kind, assertion.Kinds[:i]),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the event kind appears exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EntryEvent && event.Kind == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks if a store table row contains expected values.
// Queries with parameterized SQL and validates expected values using
// subset semantics. Exactly one row must match.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, n *names, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where, n)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Check for multiple matching rows (would indicate ambiguous assertion)
	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		actualRow[col] = renderColumn(n, col, values[i])
	}

	keys := sortedKeys(assertion.Expect)
	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Table, key, expectedValue),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.Table, key, actualValue),
			}
		}
	}
	return nil
}

// renderColumn converts a raw column value to its trace form.
func renderColumn(n *names, col string, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch {
	case addressColumns[col]:
		if addr, err := ir.ParseAddress(s); err == nil {
			return n.render(addr)
		}
	case amountColumns[col]:
		if amt, err := ir.ParseAmount(s); err == nil {
			return ir.FormatUnits(amt)
		}
	}
	return s
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for
// determinism. Address and amount filters are converted to their stored
// form.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]interface{}, n *names) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		arg, err := toSQLValue(n, key, where[key])
		if err != nil {
			return "", nil, fmt.Errorf("where %s: %w", key, err)
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, arg)
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a filter value to its stored form.
func toSQLValue(n *names, col string, v interface{}) (interface{}, error) {
	switch {
	case addressColumns[col]:
		addr, err := n.lookup(fmt.Sprint(v))
		if err != nil {
			return nil, err
		}
		return addr.String(), nil
	case amountColumns[col]:
		amt, err := ir.ParseUnits(fmt.Sprint(v))
		if err != nil {
			return nil, err
		}
		return amt.String(), nil
	}
	switch val := v.(type) {
	case string, int, int64, bool:
		return val, nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares expected and actual values from state tables.
// Handles type coercion for SQLite values which may be returned as different
// types, and YAML numbers written for whole-unit amount strings.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case int:
		switch act := actual.(type) {
		case int64:
			return int64(exp) == act
		case string:
			// amount columns render as whole-unit strings
			return fmt.Sprint(exp) == act
		}
		return false
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case string:
			return fmt.Sprint(exp) == act
		}
		return false
	case float64:
		// YAML decodes unquoted decimals like 0.01 as floats
		if actualStr, ok := actual.(string); ok {
			return fmt.Sprint(exp) == actualStr
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// matchFields checks if an event's rendered fields contain all expected
// fields (subset match). The key "asset" matches the event's asset.
func matchFields(event TraceEvent, expected map[string]interface{}) bool {
	for key, expectedVal := range expected {
		if key == "asset" {
			if fmt.Sprint(expectedVal) != event.Asset {
				return false
			}
			continue
		}
		actualVal, exists := event.Fields[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares a rendered field with a YAML value. Rendered fields
// are strings or int64 and YAML integers decode as int, so values compare
// by their printed form.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Ctx    context.Context
	Params engine.Params
	Engine *engine.Engine

	names *names
}

// assertInvariants checks the live engine's invariants and audits the
// store against a replay of its own event log.
func assertInvariants(actx *AssertionContext) error {
	if actx.Engine != nil {
		if err := actx.Engine.CheckInvariants(); err != nil {
			return &AssertionError{
				Type:     AssertInvariants,
				Expected: "ledger invariants hold",
				Actual:   err.Error(),
			}
		}
	}
	report, err := Verify(actx.Ctx, actx.Params, actx.Store)
	if err != nil {
		return err
	}
	if !report.OK() {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: "store replays to the engine state",
			Actual:   strings.Join(report.Problems, "; "),
		}
	}
	if actx.Engine != nil && report.Seq != actx.Engine.Seq() {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: fmt.Sprintf("store seq %d", actx.Engine.Seq()),
			Actual:   fmt.Sprintf("store seq %d", report.Seq),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for final_state and invariants
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				n := actx.names
				if n == nil {
					n = newNames()
				}
				err = assertFinalState(actx.Ctx, actx.Store, n, assertion)
			}
		case AssertInvariants:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: invariants requires database context", i)
			} else {
				err = assertInvariants(actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
