package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"DataPrep/src/config"
	"DataPrep/src/dataset"
	"DataPrep/src/session"
	"DataPrep/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"x", "c", "y"},
		{"1", "a", "0"},
		{"2", "b", "1"},
		{"3", "a", "0"},
		{"4", "b", "1"},
		{"5", "a", "0"},
	}, dataset.Provenance{Source: "inline"})
	require.NoError(t, err)
	return session.New(ds)
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	opts, err := parseFlags([]string{"-config", "app.json", "-no-repl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, cliOptions{configDir: "./config", configFile: "app.json", envFile: ".env", noREPL: true}, opts)

	_, err = parseFlags([]string{"-bogus"}, &out)
	assert.Error(t, err)
}

func TestSourceKind(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, dataset.SourceFile, sourceKind(cfg))

	cfg.Email = config.EmailConfig{Server: "imap.example.com:993", TargetSubject: "数据集"}
	assert.Equal(t, dataset.SourceEmail, sourceKind(cfg))

	cfg.Database = config.DatabaseConfig{DSN: "postgres://localhost/db", Query: "select 1"}
	assert.Equal(t, dataset.SourceDatabase, sourceKind(cfg))
}

func TestFileLoader(t *testing.T) {
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	cfg := &config.Config{}
	_, _, err = newLoader(context.Background(), cfg, logger)
	assert.Error(t, err, "file source needs a path")

	cfg.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")
	load, closeFn, err := newLoader(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer closeFn()
	_, err = load()
	assert.Error(t, err)
}

func TestStateEndpoint(t *testing.T) {
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	sess := testSession(t)
	_, err = sess.Execute(context.Background(), session.Command{Name: session.CmdSplit, Arg: "y"})
	require.NoError(t, err)

	srv := httptest.NewServer(newMux(logger, sess))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got session.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, sess.ID(), got.ID)
	assert.True(t, got.HasSplit)
	assert.Equal(t, dataset.Shape{Rows: 5, Cols: 3}, got.Shape)
	assert.Equal(t, &dataset.Shape{Rows: 1, Cols: 2}, got.TestShape)
	assert.Len(t, got.History, 1)
}

func TestREPL(t *testing.T) {
	sess := testSession(t)
	in := strings.NewReader("split\nsplit y\n\nencode label\nfrobnicate\nquit\nshow\n")
	var out bytes.Buffer

	repl(context.Background(), in, &out, sess)

	text := out.String()
	assert.Contains(t, text, "error: Enter target name first.")
	assert.Contains(t, text, "Train-test split completed.")
	assert.Contains(t, text, "Label Encoding")
	assert.Contains(t, text, "error: unknown command: frobnicate")
	assert.NotContains(t, text, "session ", "input after quit is ignored")
}
