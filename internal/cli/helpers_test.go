package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// mustExecute runs the root command and fails the test on error.
func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "tokensale %v\n%s", args, out)
	return out
}

// initDB creates a database with the reference deployment.
func initDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "sale.db")
	mustExecute(t, "init", "--db", db)
	return db
}

// deployGamma creates GAM as alice and sells 1000 units to bob.
func deployGamma(t *testing.T, db string) {
	t.Helper()
	mustExecute(t, "create", "Gamma", "GAM", "--db", db, "--from", "alice")
	mustExecute(t, "buy", "GAM", "1000", "--db", db, "--from", "bob")
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decodeResponse parses a JSON response and its data into v (if non-nil).
func decodeResponse(t *testing.T, out string, v interface{}) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v), string(resp.Data))
	}
	return resp
}
