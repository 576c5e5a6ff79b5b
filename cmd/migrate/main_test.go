package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/storage/db"
)

func TestParseArgs(t *testing.T) {
	cases := []struct {
		args    []string
		command string
		rest    []string
	}{
		{nil, "up", nil},
		{[]string{""}, "up", nil},
		{[]string{"status"}, "status", []string{}},
		{[]string{"down-to", "2"}, "down-to", []string{"2"}},
	}
	for _, tc := range cases {
		command, rest := parseArgs(tc.args)
		if command != tc.command {
			t.Fatalf("parseArgs(%v) command = %q, want %q", tc.args, command, tc.command)
		}
		if diff := cmp.Diff(tc.rest, rest); diff != "" {
			t.Fatalf("parseArgs(%v) rest mismatch (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run(context.Background(), config.Config{Env: "production"}, []string{"status"})
	if !errors.Is(err, db.ErrNoDatabaseURL) {
		t.Fatalf("expected ErrNoDatabaseURL, got %v", err)
	}
}
