// Command node runs a single NoCoin network node: an HTTP server for
// peer gossip and wallet submissions, and a background proof-of-work
// mining loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	v1 "github.com/nocoinlabs/nocoin-node/app/services/node/handlers/v1"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/database"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/gossip"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/signature"
	"github.com/nocoinlabs/nocoin-node/foundation/blockchain/state"
	"github.com/nocoinlabs/nocoin-node/foundation/logger"
	"github.com/nocoinlabs/nocoin-node/foundation/web"
	"github.com/nocoinlabs/nocoin-node/foundation/web/mid"

	"github.com/ardanlabs/conf/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// envConfig is the ambient, environment-driven half of the node's
// configuration: server timeouts and log verbosity, bound from
// NODE_-prefixed environment variables by ardanlabs/conf.
type envConfig struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
	}
	Log struct {
		Level string `conf:"default:info"`
	}
}

// cliFlags are the --flag values cobra binds for the root command; port
// is taken as a positional argument instead.
type cliFlags struct {
	bootstrap string
}

func main() {
	var flags cliFlags

	root := &cobra.Command{
		Use:   "node [port]",
		Short: "run a NoCoin blockchain node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			return run(port, flags)
		},
	}

	root.Flags().StringVar(&flags.bootstrap, "bootstrap", "", "peer address to bootstrap from (default: 127.0.0.1:<port-1>)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(port int, flags cliFlags) error {
	var envCfg envConfig
	envCfg.Version = conf.Version{Build: "develop", Desc: "nocoin node"}

	help, err := conf.Parse("NODE", &envCfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing environment config: %w", err)
	}

	log, err := logger.New("node", envCfg.Log.Level)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	priv, pub, err := signature.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating node identity key: %w", err)
	}

	evHandler := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	gossipClient := gossip.New(log)

	st, err := bootstrapOrFresh(log, gossipClient, addr, priv, pub, evHandler, flags.bootstrap)
	if err != nil {
		return fmt.Errorf("starting node state: %w", err)
	}

	worker := state.NewWorker(st, gossipClient)
	defer worker.Shutdown()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Panics())

	cfg := v1.Config{Log: log, State: st, Gossip: gossipClient}
	v1.PublicRoutes(app, cfg)
	v1.GossipRoutes(app, cfg)

	server := http.Server{
		Addr:         addr,
		Handler:      app,
		ReadTimeout:  envCfg.Web.ReadTimeout,
		WriteTimeout: envCfg.Web.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("node listening", "addr", addr, "id", st.User().Node.ID)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown started", "signal", sig)
		defer log.Infow("shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), envCfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// bootstrapOrFresh attempts to register with a bootstrap peer (an
// explicit override, falling back to the port-minus-one convention); if
// registration fails it starts a brand-new network instead. Once
// registration succeeds, a failure to fetch or adopt the peer's chain is
// returned as an error.
func bootstrapOrFresh(log *zap.SugaredLogger, g *gossip.Client, addr string, priv signature.PrivKey, pub signature.PubKey, ev func(string, ...any), bootstrapOverride string) (*state.State, error) {
	bootstrap := bootstrapOverride
	if bootstrap == "" {
		var err error
		bootstrap, err = gossip.BootstrapAddr(addr)
		if err != nil {
			return nil, fmt.Errorf("computing bootstrap address: %w", err)
		}
	}

	cfg := state.Config{
		Addr:      addr,
		PrivKey:   priv,
		PubKey:    pub,
		EvHandler: ev,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	peers, err := g.RegisterNode(ctx, bootstrap, pub)
	if err != nil {
		log.Warnw("bootstrap failed, starting fresh network", "bootstrap", bootstrap, "error", err)
		return state.New(cfg)
	}

	bootstrapPeer := database.Node{Addr: bootstrap}

	chain, err := g.GetChain(ctx, bootstrapPeer)
	if err != nil {
		return nil, fmt.Errorf("fetching chain from bootstrap peer: %w", err)
	}

	st, err := state.NewAdopted(cfg, peers, chain)
	if err != nil {
		return nil, fmt.Errorf("adopting bootstrap peer's network: %w", err)
	}

	if err := adoptPendingFrom(ctx, g, bootstrapPeer, st); err != nil {
		log.Warnw("adopting pending transactions from bootstrap peer failed, starting with an empty pool", "error", err)
	}

	log.Infow("adopted network from bootstrap peer", "bootstrap", bootstrap, "peers", len(peers))

	return st, nil
}

// adoptPendingFrom fetches peer's pending pool and re-verifies each
// transaction against this node's own view before adopting it.
func adoptPendingFrom(ctx context.Context, g *gossip.Client, peer database.Node, st *state.State) error {
	proven, err := g.GetPendingTransactions(ctx, peer)
	if err != nil {
		return err
	}

	txs := make([]database.Transaction, len(proven))
	proofs := make([]signature.Signature, len(proven))
	for i, p := range proven {
		txs[i] = p.Transaction.Transaction
		proofs[i] = p.Proof
	}

	return st.TryAdoptPendingTransactions(txs, proofs)
}
