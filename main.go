package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/ore-hq/pool-miner/config"
	"github.com/ore-hq/pool-miner/history"
	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/miner"
	"github.com/ore-hq/pool-miner/pool"
)

// Poolminer binary version.
// It should be passed during the build with '-ldflags "-X main.version="'.
var version = "unknown"

type app struct {
	ctx context.Context
	cfg *config.Config
}

type mineCommand struct{ app *app }

func (c *mineCommand) Execute([]string) error {
	m, err := miner.New(c.app.ctx, *c.app.cfg)
	if err != nil {
		return fmt.Errorf("failed to create miner: %w", err)
	}
	defer m.Close()
	if err := m.Start(c.app.ctx); err != nil {
		return fmt.Errorf("failure in miner: %w", err)
	}
	return nil
}

type signupCommand struct{ app *app }

func (c *signupCommand) Execute([]string) error {
	client, identity, err := miner.NewClient(c.app.ctx, *c.app.cfg)
	if err != nil {
		return err
	}
	err = client.Signup(c.app.ctx)
	switch {
	case errors.Is(err, pool.ErrAlreadyRegistered):
		fmt.Printf("%s is already signed up\n", identity.Address())
	case err != nil:
		return err
	default:
		fmt.Printf("signed up %s\n", identity.Address())
	}
	return nil
}

type claimCommand struct {
	app *app

	Amount string `long:"amount" description:"Amount of rewards to claim, in tokens" required:"true"`
}

func (c *claimCommand) Execute([]string) error {
	amount, err := pool.ParseAmount(c.Amount, pool.TokenDecimals)
	if err != nil {
		return err
	}
	client, _, err := miner.NewClient(c.app.ctx, *c.app.cfg)
	if err != nil {
		return err
	}
	receipt, err := client.Claim(c.app.ctx, amount)
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s, transaction: %s\n", receipt.Amount, receipt.Transaction)
	return nil
}

type rewardsCommand struct{ app *app }

func (c *rewardsCommand) Execute([]string) error {
	client, _, err := miner.NewClient(c.app.ctx, *c.app.cfg)
	if err != nil {
		return err
	}
	rewards, err := client.Rewards(c.app.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("claimable rewards: %s\n", rewards)
	return nil
}

type balanceCommand struct{ app *app }

func (c *balanceCommand) Execute([]string) error {
	client, _, err := miner.NewClient(c.app.ctx, *c.app.cfg)
	if err != nil {
		return err
	}
	balance, err := client.Balance(c.app.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("balance: %s\n", balance)
	return nil
}

type historyCommand struct {
	app *app

	Limit int `long:"limit" description:"Number of most recent rounds to show (0 for all)"`
}

func (c *historyCommand) Execute([]string) error {
	db, err := history.Open(c.app.cfg.HistoryDir())
	if err != nil {
		return err
	}
	defer db.Close()
	records, err := db.Recent(c.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tTIME\tOUTCOME\tDIFFICULTY\tNONCE\tHASHES")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n",
			r.RoundID, r.Time().Format(time.RFC3339), r.Outcome, r.Difficulty, r.Nonce, r.Hashes)
	}
	return w.Flush()
}

func newParser(cfg *config.Config, a *app, selected *flags.Commander, args *[]string) (*flags.Parser, error) {
	parser := flags.NewParser(cfg, flags.Default)
	// Commands run once configuration is complete, not while parsing.
	parser.CommandHandler = func(command flags.Commander, rest []string) error {
		*selected = command
		*args = rest
		return nil
	}
	for _, c := range []struct {
		name, short, long string
		data              any
	}{
		{"mine", "Connect to pool and start mining.", "", &mineCommand{app: a}},
		{"signup", "Sign up with the pool.", "", &signupCommand{app: a}},
		{"claim", "Claim rewards.", "Withdraw accrued rewards to the miner's wallet.", &claimCommand{app: a}},
		{"rewards", "Display claimable rewards.", "", &rewardsCommand{app: a}},
		{"balance", "Display current token balance.", "", &balanceCommand{app: a}},
		{"history", "Display rounds mined by this machine.", "", &historyCommand{app: a}},
	} {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// poolminerMain is the true entry point for poolminer. This function is required since
// defers created in the top-level scope of a main method aren't executed if
// os.Exit() is called.
func poolminerMain() error {
	var (
		selected flags.Commander
		args     []string
		a        app
	)
	// Start with a default Config with sane settings
	cfg := config.DefaultConfig()
	parser, err := newParser(cfg, &a, &selected, &args)
	if err != nil {
		return err
	}
	// Pre-parse the command line to check for an alternative Config file
	if _, err := parser.Parse(); err != nil {
		return err
	}
	// Load configuration file overwriting defaults with any specified options
	cfg, err = config.ReadConfigFile(cfg)
	if err != nil {
		return err
	}
	cfg, err = config.SetupConfig(cfg)
	if err != nil {
		return err
	}
	// Finally, parse the command line options again to ensure
	// they take precedence.
	if _, err := parser.Parse(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logging
	logLevel := zap.InfoLevel
	if cfg.DebugLog {
		logLevel = zap.DebugLevel
	}
	logger := logging.New(logLevel, &logging.FileConfig{
		Filename:   cfg.LogFile(),
		MaxSizeMB:  cfg.MaxLogFileSize,
		MaxBackups: cfg.MaxLogFiles,
	}, cfg.JSONLog)
	defer logger.Sync()
	ctx := logging.NewContext(context.Background(), logger)

	// Show version at startup.
	logger.Info("starting poolminer",
		zap.String("version", version),
		zap.String("command", parser.Active.Name),
		zap.Object("config", cfg),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.ctx = ctx
	a.cfg = cfg
	return selected.Execute(args)
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := poolminerMain(); err != nil {
		// If it's the flag utility error don't print it,
		// because it was already printed.
		if _, ok := err.(*flags.Error); !ok {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
