package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmistrz/ipu6-camera-hal/internal/grpcserver"
	"github.com/marmistrz/ipu6-camera-hal/internal/server"
)

func newServeCmd(root *Root) *cobra.Command {
	var (
		httpAddr     string
		grpcAddr     string
		capabilities string
		watch        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translator over HTTP and gRPC",
		Long: `Start the translation service. Frames are accepted over HTTP
(POST /cameras/{id}/frames) and gRPC (hal3a.v1.Translator), results are
streamed on the /stream websocket, and the capability file is reloaded when it
changes.

Examples:
  hal3a serve --http :8080 --grpc :9090
  hal3a serve --capabilities /etc/hal3a/ipu6.yaml --grpc ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			capPath := capabilities
			if capPath == "" {
				capPath = root.cfg.Paths.CapabilityFile
			}
			reg, err := root.openPlatform(capPath)
			if err != nil {
				return err
			}
			pipe, err := root.newPipeline(ctx, "serve", reg)
			if err != nil {
				return err
			}
			defer pipe.Stop()

			root.log.Info("starting service",
				"http", httpAddr,
				"grpc", grpcAddr,
				"capabilities", capPath,
				"session", pipe.SessionID(),
			)

			g, ctx := errgroup.WithContext(ctx)
			if httpAddr != "" {
				srv := server.NewServer(httpAddr, root.store, pipe, root.log)
				g.Go(func() error { return srv.Start(ctx) })
			}
			if grpcAddr != "" {
				svc := grpcserver.NewTranslatorService(pipe, root.log)
				g.Go(func() error { return svc.Start(ctx, grpcAddr) })
			}
			if reg != nil && watch {
				g.Go(func() error { return reg.Watch(ctx) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", root.cfg.Server.HTTPAddr, "HTTP listen address, empty to disable")
	cmd.Flags().StringVar(&grpcAddr, "grpc", root.cfg.Server.GRPCAddr, "gRPC listen address, empty to disable")
	cmd.Flags().StringVar(&capabilities, "capabilities", "", "capability file (YAML or JSON), defaults to paths.capability_file")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the capability file when it changes")
	return cmd
}
