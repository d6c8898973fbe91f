package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/confidence-gate/internal/logging"
	"github.com/danielpatrickdp/confidence-gate/internal/rpc"
)

// #region serve

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-lived evaluation daemon",
	Long: `Run the gRPC daemon for hosts that keep one process alive instead of
spawning the hook per event. The daemon shares the session database with the
hook; the store's exclusive lock keeps the two from interleaving turns.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "localhost:50061", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logging.New(debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, eng, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info("starting daemon", zap.String("listen", serveAddr))
	return rpc.Serve(serveAddr, store, eng, log)
}

// #endregion serve
