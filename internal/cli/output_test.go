package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/engine"
)

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("SALE_CLOSED", "sale is closed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SALE_CLOSED", resp.Error.Code)
	assert.Equal(t, "sale is closed", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E_COMMAND", "bad input", "extra")
	require.NoError(t, err)

	assert.Equal(t, "Error [E_COMMAND]: bad input\nDetails: extra\n", buf.String())
}

func TestOutputFormatter_Emit(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Emit(42, func(w io.Writer) { _, _ = io.WriteString(w, "answer\n") })
	require.NoError(t, err)
	assert.Equal(t, "answer\n", buf.String())

	buf.Reset()
	formatter.Format = "json"
	err = formatter.Emit(42, func(w io.Writer) { t.Fatal("text renderer called in json mode") })
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":42}`, buf.String())
}

func TestOutputFormatter_RejectEngineError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	engErr := &engine.Error{Code: engine.ErrCodeUnauthorized, Op: "withdraw", Message: "not the owner"}
	err := formatter.Reject(engErr)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, engine.ErrCodeUnauthorized, engine.CodeOf(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	assert.Equal(t, "not the owner", resp.Error.Message)
}

func TestOutputFormatter_RejectCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Reject(errors.New("disk on fire"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, buf.String())

	err = formatter.Reject(NewExitError(ExitCommandError, "database not found: x.db"))
	assert.Equal(t, "database not found: x.db", err.Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.Equal(t, "inner", errors.Unwrap(wrapped).Error())
}
