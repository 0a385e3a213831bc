package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/internal/bridge"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/script"
)

const autosave = "autosave"

var (
	serveAddr    string
	serveSymbols string
	serveRestore string
	serveNoSave  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine to browser canvases over websockets",
	Long: `Serve starts an HTTP server with a websocket endpoint at /ws. Every client
shares one canvas; commands from all clients are applied in arrival order
and every change is broadcast as a frame of wires and junction dots.

The canvas is restored from the session store's autosave (or --restore) on
start and saved back to the store on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSymbols, "symbols", "", "KiCad symbol directory (default from config)")
	serveCmd.Flags().StringVar(&serveRestore, "restore", "", "session file to load instead of the autosave")
	serveCmd.Flags().BoolVar(&serveNoSave, "no-save", false, "do not save the canvas on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	codec, err := persist.CodecFor(cfg.Storage.Format)
	if err != nil {
		return err
	}
	store, err := persist.NewFileStore(cfg.Storage.Dir, codec)
	if err != nil {
		return err
	}

	env, err := newEnv(symbolsFrom(serveSymbols))
	if err != nil {
		return err
	}
	if err := restoreInitial(env, store); err != nil {
		return err
	}

	hub, err := bridge.NewHub(env, cfg.FrameInterval(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		_ = hub.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           bridge.NewHandler(hub, cfg.Server.Origins).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "frame", cfg.FrameInterval())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		stop()
		<-hubDone
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "err", err)
		}
		<-hubDone
	}

	// the hub has stopped; env is ours again
	if serveNoSave {
		return nil
	}
	if err := store.Save(autosave, env.Session()); err != nil {
		return err
	}
	logger.Info("session saved", "dir", store.Dir, "name", autosave)
	return nil
}

func restoreInitial(env *script.Env, store *persist.FileStore) error {
	var (
		sess persist.Session
		err  error
	)
	if serveRestore != "" {
		sess, err = persist.ReadFile(serveRestore)
	} else {
		sess, err = store.Load(autosave)
		if errors.Is(err, persist.ErrNotFound) {
			return nil
		}
	}
	if err != nil {
		return err
	}
	rep, err := env.Restore(sess)
	if err != nil {
		return err
	}
	logger.Info("session restored", "nets", rep.Nets, "wires", rep.Wires, "skipped", len(rep.Skipped))
	return nil
}
