package cors

import (
	"fmt"
	"strconv"

	"targetapi/pkg/models"
	"targetapi/pkg/utils/logger"

	"github.com/valyala/fasthttp"
)

const (
	ALLOW_ALL_ORIGINS = "*"
	ALLOWED_METHODS   = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"
	DEFAULT_MAX_AGE   = 600
)

type Cors struct {
	allowAll         bool
	origins          map[string]struct{}
	allowCredentials bool
	maxAge           int
	logger           *logger.Logger
}

func NewCors(cfg *models.CorsConfig, logger *logger.Logger) *Cors {
	c := &Cors{
		origins:          make(map[string]struct{}),
		allowCredentials: cfg.AllowCredentials,
		maxAge:           cfg.MaxAge,
		logger:           logger,
	}
	if c.maxAge <= 0 {
		c.maxAge = DEFAULT_MAX_AGE
	}

	for _, origin := range cfg.AllowOrigins {
		if origin == ALLOW_ALL_ORIGINS {
			c.allowAll = true
			continue
		}
		c.origins[origin] = struct{}{}
	}

	return c
}

// Middleware answers preflight requests itself and decorates every other
// response that carries an Origin header.
func (c *Cors) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))
		if origin == "" {
			next(ctx)
			return
		}

		if ctx.IsOptions() && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
			c.preflight(ctx, origin)
			return
		}

		next(ctx)
		c.simple(ctx, origin)
	}
}

func (c *Cors) isAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.origins[origin]
	return ok
}

func (c *Cors) preflight(ctx *fasthttp.RequestCtx, origin string) {
	if !c.isAllowed(origin) {
		c.logger.Debug(fmt.Sprintf("Rejected CORS preflight from origin %s", origin))
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("Disallowed CORS origin")
		return
	}

	h := &ctx.Response.Header
	if c.allowAll && !c.allowCredentials {
		h.Set("Access-Control-Allow-Origin", ALLOW_ALL_ORIGINS)
	} else {
		c.explicitOrigin(ctx, origin)
	}
	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Allow-Methods", ALLOWED_METHODS)
	h.Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))

	if requested := ctx.Request.Header.Peek("Access-Control-Request-Headers"); len(requested) > 0 {
		h.SetBytesV("Access-Control-Allow-Headers", requested)
	}

	c.logger.Debug(fmt.Sprintf("Answered CORS preflight from origin %s", origin))
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("OK")
}

func (c *Cors) simple(ctx *fasthttp.RequestCtx, origin string) {
	if !c.isAllowed(origin) {
		return
	}

	// A wildcard is not honoured by browsers for credentialed requests, so
	// echo the origin whenever cookies are involved.
	hasCookie := len(ctx.Request.Header.Peek("Cookie")) > 0
	if c.allowAll && !(c.allowCredentials && hasCookie) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", ALLOW_ALL_ORIGINS)
	} else {
		c.explicitOrigin(ctx, origin)
	}
	if c.allowCredentials {
		ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (c *Cors) explicitOrigin(ctx *fasthttp.RequestCtx, origin string) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
	ctx.Response.Header.Add("Vary", "Origin")
}
