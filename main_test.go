package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/ore-hq/pool-miner/config"
	"github.com/ore-hq/pool-miner/history"
)

func TestParserSelectsCommand(t *testing.T) {
	var (
		selected flags.Commander
		args     []string
		a        app
	)
	cfg := config.DefaultConfig()
	parser, err := newParser(cfg, &a, &selected, &args)
	require.NoError(t, err)

	_, err = parser.ParseArgs([]string{"--url", "pool.test", "-u", "--threads", "3", "claim", "--amount", "1.5"})
	require.NoError(t, err)
	require.Equal(t, "pool.test", cfg.Pool.URL)
	require.True(t, cfg.Pool.UseHTTP)
	require.Equal(t, 3, cfg.Mining.Workers)

	claim, ok := selected.(*claimCommand)
	require.True(t, ok)
	require.Equal(t, "1.5", claim.Amount)
	require.Same(t, &a, claim.app)
	require.Equal(t, "claim", parser.Active.Name)
}

func TestParserRequiresCommand(t *testing.T) {
	var (
		selected flags.Commander
		args     []string
		a        app
	)
	parser, err := newParser(config.DefaultConfig(), &a, &selected, &args)
	require.NoError(t, err)
	parser.Options &^= flags.PrintErrors

	_, err = parser.ParseArgs([]string{"--url", "pool.test"})
	require.Error(t, err)
	require.Nil(t, selected)

	_, err = parser.ParseArgs([]string{"claim"})
	require.Error(t, err, "claim needs an amount")
}

func TestHistoryCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	db, err := history.Open(cfg.HistoryDir())
	require.NoError(t, err)
	require.NoError(t, db.Save(context.Background(), history.Record{RoundID: 4, Outcome: "accepted"}))
	require.NoError(t, db.Close())
	require.DirExists(t, filepath.Join(cfg.DataDir, "history"))

	cmd := &historyCommand{app: &app{ctx: context.Background(), cfg: cfg}, Limit: 5}
	require.NoError(t, cmd.Execute(nil))
}
