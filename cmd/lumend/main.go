package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lumenchain/lumend/core"
	"github.com/lumenchain/lumend/pkg/api"
	"github.com/lumenchain/lumend/pkg/config"
	"github.com/lumenchain/lumend/pkg/eventbus"
	"github.com/lumenchain/lumend/pkg/genesis"
)

func main() {
	rootCmd := &cobra.Command{Use: "lumend", Short: "delegated-proof-of-stake node daemon"}
	rootCmd.PersistentFlags().String("config", "config/default.yaml", "path to node configuration")

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(genesisCmd())
	rootCmd.AddCommand(chainCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// node bundles every component NewBlockService needs, assembled once at
// startup from configuration.
type node struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *core.Metrics

	accounts   *core.AccountRegistry
	dispatcher *core.Dispatcher
	slots      *core.SlotService
	pool       *core.TransactionPool
	queue      *core.TransactionQueue
	storage    *core.BlockStorage
	repo       core.BlockRepository
	bus        *eventbus.Bus
	blocks     *core.BlockService
}

func buildNode(configFile string) (*node, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)
	metrics := core.NewMetrics()

	epoch, err := cfg.EpochAnchor()
	if err != nil {
		return nil, err
	}

	accounts := core.NewAccountRegistry()
	dispatcher := core.NewDispatcher(core.FeeSchedule{
		Send:      cfg.Fees.Send,
		Vote:      cfg.Fees.Vote,
		Stake:     cfg.Fees.Stake,
		Delegate:  cfg.Fees.Delegate,
		Signature: cfg.Fees.Signature,
		Register:  cfg.Fees.Register,
	})
	slots := core.NewSlotService(core.SlotConfig{
		EpochTime:            epoch,
		SlotIntervalSeconds:  cfg.Consensus.SlotIntervalSeconds,
		ActiveDelegatesCount: cfg.Network.ActiveDelegates,
	}, 8)
	storage := core.NewBlockStorage(cfg.Mempool.MaxBlockInMemory)
	repo := core.NewInMemoryBlockRepository()
	sync := core.NewFakeSync()
	bus := eventbus.New(32)

	pool := core.NewTransactionPool(dispatcher, accounts, sync, log)
	queue := core.NewTransactionQueue(dispatcher, accounts, pool, log)

	blocks := core.NewBlockService(
		core.BlockServiceConfig{
			MaxTransactionsPerBlock: cfg.Consensus.MaxTransactionsPerBlock,
			MinRoundBlockHeight:     cfg.Consensus.MinRoundBlockHeight,
			CurrentBlockVersion:     cfg.Consensus.CurrentBlockVersion,
			ActiveDelegatesCount:    cfg.Network.ActiveDelegates,
		},
		slots, accounts, dispatcher, pool, queue, storage, repo, sync, bus, metrics, nil, log,
	)

	return &node{
		cfg: cfg, log: log, metrics: metrics,
		accounts: accounts, dispatcher: dispatcher, slots: slots,
		pool: pool, queue: queue, storage: storage, repo: repo, bus: bus, blocks: blocks,
	}, nil
}

func startCmd() *cobra.Command {
	var genesisFile string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "run the node: consensus sequence, mempool drain loop, and the metrics/delegates HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			n, err := buildNode(configFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go n.blocks.Run(ctx)

			if genesisFile != "" {
				if err := applyGenesisFile(n, genesisFile); err != nil {
					return fmt.Errorf("apply genesis: %w", err)
				}
			}

			go func() {
				for {
					n.queue.DrainAll()
					time.Sleep(200 * time.Millisecond)
				}
			}()

			srv := api.NewServer(n.accounts, n.metrics, n.log)
			n.log.WithField("addr", n.cfg.Metrics.ListenAddr).Info("starting HTTP surface")
			return http.ListenAndServe(n.cfg.Metrics.ListenAddr, srv.Router())
		},
	}
	cmd.Flags().StringVar(&genesisFile, "genesis", "", "genesis seed file to apply on startup (fresh chains only)")
	return cmd
}

func applyGenesisFile(n *node, path string) error {
	seed, err := genesis.Load(path)
	if err != nil {
		return err
	}
	accounts, err := seed.Accounts()
	if err != nil {
		return err
	}
	txs, err := seed.Transactions()
	if err != nil {
		return err
	}
	return n.blocks.ApplyGenesisBlock(txs, accounts)
}

func genesisCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "genesis"}
	verify := &cobra.Command{
		Use:   "verify [seed-file]",
		Short: "parse and validate a genesis seed file without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := genesis.Load(args[0])
			if err != nil {
				return err
			}
			accounts, err := seed.Accounts()
			if err != nil {
				return err
			}
			fmt.Printf("genesis seed OK: %d accounts\n", len(accounts))
			return nil
		},
	}
	cmd.AddCommand(verify)
	return cmd
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain"}
	tip := &cobra.Command{
		Use:   "tip",
		Short: "print the current chain tip height and id",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			n, err := buildNode(configFile)
			if err != nil {
				return err
			}
			last := n.storage.GetLast()
			if last == nil {
				fmt.Println("chain is empty")
				return nil
			}
			fmt.Printf("height=%d id=%s\n", last.Height, last.ID)
			return nil
		},
	}
	cmd.AddCommand(tip)
	return cmd
}
