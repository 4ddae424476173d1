package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/saferoot/core"
	"github.com/tos-network/saferoot/internal/flags"
	"github.com/tos-network/saferoot/internal/saferootapi"
	"github.com/tos-network/saferoot/saferootidx"
)

var (
	httpAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP-RPC server listening interface",
		Value:    "127.0.0.1",
		Category: flags.APICategory,
	}
	httpPortFlag = &cli.IntFlag{
		Name:     "http.port",
		Usage:    "HTTP-RPC server listening port",
		Value:    8645,
		Category: flags.APICategory,
	}
	httpCORSDomainFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Category: flags.APICategory,
	}
	wsOriginsFlag = &cli.StringFlag{
		Name:     "ws.origins",
		Usage:    "Origins from which to accept websockets requests on /ws",
		Category: flags.APICategory,
	}
	indexCacheFlag = &cli.IntFlag{
		Name:     "index.sweeps",
		Usage:    "Number of recent sweeps kept by the indexer",
		Value:    saferootidx.DefaultRecentSweeps,
		Category: flags.SaferootCategory,
	}
)

var commandServe = &cli.Command{
	Name:  "serve",
	Usage: "serve a ledger over JSON-RPC",
	Description: `
Opens the ledger at --datadir (in memory when unset), indexes every log it
produces and serves the saferoot, saferootidx and ledger namespaces over
HTTP, with websockets on /ws. Pending state is committed on shutdown.`,
	Flags: []cli.Flag{
		datadirFlag,
		httpAddrFlag,
		httpPortFlag,
		httpCORSDomainFlag,
		wsOriginsFlag,
		indexCacheFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg := core.DefaultConfig
		cfg.DataDir = ctx.String(datadirFlag.Name)
		ledger, err := core.NewLedger(&cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		registry := saferootidx.NewRegistry(ctx.Int(indexCacheFlag.Name))
		indexer := saferootidx.NewIndexer(ledger, registry)
		indexer.Start()
		defer indexer.Stop()

		srv, err := newRPCServer(ledger, registry)
		if err != nil {
			return err
		}
		defer srv.Stop()

		endpoint := net.JoinHostPort(ctx.String(httpAddrFlag.Name), fmt.Sprint(ctx.Int(httpPortFlag.Name)))
		listener, err := net.Listen("tcp", endpoint)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/", newCorsHandler(srv, splitAndTrim(ctx.String(httpCORSDomainFlag.Name))))
		mux.Handle("/ws", srv.WebsocketHandler(splitAndTrim(ctx.String(wsOriginsFlag.Name))))
		httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		serveErr := startHTTP(httpSrv, listener)
		log.Info("HTTP server started", "endpoint", listener.Addr(), "cors", ctx.String(httpCORSDomainFlag.Name))

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			log.Info("Got interrupt, shutting down...")
		case err := <-serveErr:
			// The server stopped on its own; still commit what was applied.
			log.Error("HTTP server stopped", "err", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", "err", err)
		}
		root, err := ledger.Commit()
		if err != nil {
			return err
		}
		log.Info("Ledger committed", "number", ledger.Number(), "root", root)
		return nil
	},
}

// startHTTP serves on listener in the background. The returned channel
// yields the error that stopped the server, unless it was a shutdown, and is
// closed when Serve returns.
func startHTTP(srv *http.Server, listener net.Listener) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Warn("HTTP server failure", "endpoint", listener.Addr(), "err", err)
			errc <- err
		}
	}()
	return errc
}

// newRPCServer registers the saferoot APIs on a fresh RPC server.
func newRPCServer(ledger *core.Ledger, registry *saferootidx.Registry) (*rpc.Server, error) {
	srv := rpc.NewServer()
	apis := []rpc.API{
		{Namespace: "saferoot", Service: saferootapi.NewSaferootAPI(ledger)},
		{Namespace: "saferootidx", Service: saferootapi.NewIndexAPI(registry)},
		{Namespace: "ledger", Service: saferootapi.NewLedgerAPI(ledger)},
	}
	for _, api := range apis {
		if err := srv.RegisterName(api.Namespace, api.Service); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// splitAndTrim splits input separated by a comma and trims excessive white
// space from the substrings.
func splitAndTrim(input string) (ret []string) {
	for _, r := range strings.Split(input, ",") {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}
