package mcpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Serve runs the server on the chosen transport until ctx is done.
func Serve(ctx context.Context, srv *mcp.Server, transport, addr string) error {
	switch transport {
	case TransportStdio, "":
		return ServeStdio(ctx, srv)
	case TransportHTTP:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrap(err, "net.Listen failed")
		}
		return ServeHTTP(ctx, srv, ln)
	default:
		return errors.Errorf("unknown transport %q", transport)
	}
}

func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	log.Info().Msg("starting stdio transport")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "srv.Run failed")
	}
	return nil
}

// NewHTTPHandler mounts the streamable HTTP transport under /mcp.
func NewHTTPHandler(srv *mcp.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return srv }, nil))
	return mux
}

func ServeHTTP(ctx context.Context, srv *mcp.Server, ln net.Listener) error {
	hs := &http.Server{
		Handler:           NewHTTPHandler(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Info().Str("addr", ln.Addr().String()).Msg("starting http server")
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "srv.Serve failed")
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("srv.Shutdown failed")
	}
	<-errCh
	log.Info().Msg("http server stopped")
	return nil
}
