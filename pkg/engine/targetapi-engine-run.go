package engine

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"targetapi/pkg/dump"
	"targetapi/pkg/metrics"
	"targetapi/pkg/models"
	"targetapi/pkg/router"
	"targetapi/pkg/utils/fs"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/multierr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ackPayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}

func (engine *TargetAPIEngine) Addr() string {
	return net.JoinHostPort(engine.config.Server.Host, strconv.Itoa(int(engine.config.Server.Port)))
}

// Run serves until SIGINT or SIGTERM, then shuts down and cleans up.
func (engine *TargetAPIEngine) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.storePid(); err != nil {
		return multierr.Append(err, engine.cleanup())
	}

	ln, err := net.Listen("tcp", engine.Addr())
	if err != nil {
		return multierr.Append(fmt.Errorf("unable to listen on %s: %w", engine.Addr(), err), engine.cleanup())
	}

	if engine.metrics != nil {
		engine.startMetricsServer()
	}

	engine.checkMirror(ctx)

	engine.logger.Info(fmt.Sprintf("targetapi engine starting on %s...", ln.Addr()))
	err = engine.Serve(ctx, ln)

	return multierr.Append(err, engine.cleanup())
}

// checkMirror pings the mirror once at startup. An unreachable Redis is only
// logged: dumps still go to the console and each publish retries on its own.
func (engine *TargetAPIEngine) checkMirror(ctx context.Context) error {
	if engine.mirror == nil {
		return nil
	}
	if err := engine.mirror.Health(ctx); err != nil {
		engine.logger.Warn(fmt.Sprintf("Mirror redis on channel %s is unreachable: %v", engine.mirror.Channel(), err))
		return err
	}
	engine.logger.Info("Mirror redis is reachable")
	return nil
}

// Serve runs the HTTP server on ln until ctx is done. In-flight requests,
// including ones sleeping through a route delay, are allowed to finish.
func (engine *TargetAPIEngine) Serve(ctx context.Context, ln net.Listener) error {
	engine.server = &fasthttp.Server{
		Handler:            engine.Handler(),
		Name:               APP_NAME,
		ReadTimeout:        engine.config.Server.ReadTimeout,
		WriteTimeout:       engine.config.Server.WriteTimeout,
		MaxRequestBodySize: engine.config.Server.MaxRequestBodySize,
		Logger:             engine.logger,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		engine.logger.Info("Shutting down server...")
		engine.stopOnce.Do(func() { close(engine.stopping) })
		if err := engine.server.Shutdown(); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fatal server error: %w", err)
		}
		return nil
	}
}

// Handler returns the request pipeline: compression, metrics, CORS, then routing.
func (engine *TargetAPIEngine) Handler() fasthttp.RequestHandler {
	handler := fasthttp.RequestHandler(engine.handleRequest)

	if engine.cors != nil {
		handler = engine.cors.Middleware(handler)
	}
	if engine.metrics != nil {
		handler = engine.metrics.Middleware(handler)
	}
	if engine.config.Server.Compress {
		handler = fasthttp.CompressHandlerBrotliLevel(handler, fasthttp.CompressBrotliDefaultCompression, fasthttp.CompressDefaultCompression)
	}

	return handler
}

func (engine *TargetAPIEngine) handleRequest(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())
	engine.logger.Debug(fmt.Sprintf("Incoming request - Method: %s, Path: %s", method, path))

	match := engine.router.Match(method, path)
	switch match.Kind {
	case router.Found:
		ctx.SetUserValue(metrics.ROUTE_USER_VALUE, match.Route.Name)
		engine.handleEcho(ctx, match.Route)

	case router.MethodNotAllowed:
		engine.logger.Debug(fmt.Sprintf("Method %s not allowed for %s", method, path))
		ctx.Response.Header.Set("Allow", strings.Join(match.Allowed, ", "))
		engine.writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorPayload{Detail: "Method Not Allowed"})

	case router.Redirect:
		location := match.RedirectPath
		if query := ctx.URI().QueryString(); len(query) > 0 {
			location += "?" + string(query)
		}
		engine.logger.Debug(fmt.Sprintf("Redirecting %s to %s", path, location))
		ctx.Response.Header.Set("Location", location)
		ctx.SetStatusCode(fasthttp.StatusTemporaryRedirect)

	default:
		engine.logger.Debug(fmt.Sprintf("No route matched for %s %s", method, path))
		engine.writeJSON(ctx, fasthttp.StatusNotFound, errorPayload{Detail: "Not Found"})
	}
}

func (engine *TargetAPIEngine) handleEcho(ctx *fasthttp.RequestCtx, route *models.RouteConfig) {
	if route.Delay > 0 {
		engine.pause(ctx, route.Delay)
	}

	// Mirror publishing is bounded by its own timeout.
	engine.printer.Print(context.Background(), dump.FromRequestCtx(ctx))

	message := route.Message
	if message == "" {
		message = engine.config.Response.Message
	}
	engine.writeJSON(ctx, fasthttp.StatusOK, ackPayload{Message: message})
}

// pause sleeps for d, returning early if the server starts shutting down.
func (engine *TargetAPIEngine) pause(ctx *fasthttp.RequestCtx, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-engine.stopping:
		engine.logger.Info(fmt.Sprintf("Delay on %s cut short by shutdown", string(ctx.Path())))
	}
}

func (engine *TargetAPIEngine) writeJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		engine.logger.Error(fmt.Sprintf("Failed to encode response: %v", err))
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (engine *TargetAPIEngine) startMetricsServer() {
	path := engine.config.Metrics.Path
	exposition := engine.metrics.Handler()

	engine.metricsServer = &fasthttp.Server{
		Name:   APP_NAME + "-metrics",
		Logger: engine.logger,
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != path {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
				return
			}
			exposition(ctx)
		},
	}

	addr := net.JoinHostPort(engine.config.Server.Host, strconv.Itoa(int(engine.config.Metrics.Port)))
	engine.logger.Info(fmt.Sprintf("Metrics exposed on %s%s", addr, path))

	go func() {
		if err := engine.metricsServer.ListenAndServe(addr); err != nil {
			engine.logger.Error(fmt.Sprintf("Metrics server error: %v", err))
		}
	}()
}

func (engine *TargetAPIEngine) pidPath() string {
	return filepath.Join(engine.config.Storage.Path, PID_FILE)
}

func (engine *TargetAPIEngine) storePid() error {
	engine.logger.Info("Storing program id information...")

	if err := fs.EnsureDir(engine.config.Storage.Path); err != nil {
		engine.logger.Error(fmt.Sprintf("Unable to create program storage path due to %v", err))
		return err
	}

	path := engine.pidPath()
	if err := os.WriteFile(path, []byte(strconv.Itoa(engine.pid)), 0o644); err != nil {
		engine.logger.Error(fmt.Sprintf("Unable to store program id due to %v", err))
		return fmt.Errorf("failed to write pid file %s: %w", path, err)
	}

	engine.logger.Info(fmt.Sprintf("Stored program id information at %s", path))
	return nil
}

func (engine *TargetAPIEngine) cleanup() error {
	var err error

	if engine.metricsServer != nil {
		if serr := engine.metricsServer.Shutdown(); serr != nil {
			engine.logger.Error(fmt.Sprintf("Failed to stop metrics server: %v", serr))
			err = multierr.Append(err, serr)
		}
		engine.metricsServer = nil
		engine.logger.Info("Metrics server stopped")
	}

	if engine.mirror != nil {
		if merr := engine.mirror.Close(); merr != nil {
			engine.logger.Error(fmt.Sprintf("Failed to close mirror: %v", merr))
			err = multierr.Append(err, merr)
		}
		engine.mirror = nil
		engine.logger.Info("Mirror closed")
	}

	if perr := fs.RemoveIfExists(engine.pidPath()); perr != nil {
		engine.logger.Error(fmt.Sprintf("Failed to remove PID file: %v", perr))
		err = multierr.Append(err, perr)
	} else {
		engine.logger.Info("PID file removed.")
	}

	return multierr.Append(err, engine.logger.Close())
}
