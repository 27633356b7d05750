package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franz/jukebox/internal/auth"
	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/server"
	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the jukebox HTTP server.

The server exposes the web page, the JSON API used by the page, the
per-song audio pages and the /data route that streams audio to clients
listed in the whitelist. The client address is read from the header set
by the fronting reverse proxy (--ip-header).

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", defaultAddr, "listen address")
	serveCmd.Flags().String("ip-header", blob.DefaultIPHeader, "request header carrying the client IP")
	serveCmd.Flags().String("index", defaultIndex, "web page served at /")
	serveCmd.Flags().Int("max-upload-mb", defaultMaxUploadMB, "maximum encoded song upload size in MiB")
	serveCmd.Flags().Duration("read-timeout", 5*time.Minute, "HTTP read timeout (uploads)")
	serveCmd.Flags().Duration("write-timeout", 0, "HTTP write timeout for a whole response (0 = none, streams can be long)")
	serveCmd.Flags().Duration("stream-idle-timeout", blob.DefaultStreamIdle, "longest a single audio write may block on a stalled client")
	serveCmd.Flags().Duration("idle-timeout", 2*time.Minute, "HTTP keep-alive idle timeout")

	for _, name := range []string{"addr", "ip-header", "index", "max-upload-mb", "read-timeout", "write-timeout", "stream-idle-timeout", "idle-timeout"} {
		viper.BindPFlag(name, serveCmd.Flags().Lookup(name))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	blobs, err := openBlobs()
	if err != nil {
		return err
	}

	events := openEvents()
	defer events.Close()

	enricher, closeEnricher := openEnricher()
	defer closeEnricher()

	srv := &server.Server{
		Store: st,
		Blobs: blobs,
		Gate: &blob.Gate{
			Header:  util.GetConfigString("ip-header", blob.DefaultIPHeader),
			Members: st.Whitelist,
		},
		Auth:       &auth.Authenticator{Store: st.Users},
		Enricher:   enricher,
		Events:     events,
		IndexPath:  util.GetConfigString("index", defaultIndex),
		MaxUpload:  int64(util.GetConfigInt("max-upload-mb", defaultMaxUploadMB)) << 20,
		StreamIdle: util.GetConfigDuration("stream-idle-timeout", blob.DefaultStreamIdle),
	}

	// viper.GetDuration so an explicit 0 keeps "no timeout"
	timeouts := server.Timeouts{
		ReadHeader: 10 * time.Second,
		Read:       viper.GetDuration("read-timeout"),
		Write:      viper.GetDuration("write-timeout"),
		Idle:       viper.GetDuration("idle-timeout"),
	}

	addr := util.GetConfigString("addr", defaultAddr)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	util.InfoLog("Songs directory: %s", blobs.Root())
	util.InfoLog("Client IP header: %s", srv.Gate.Header)

	if err := srv.Serve(ctx, ln, timeouts, 10*time.Second); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	util.SuccessLog("Server stopped")
	return nil
}
