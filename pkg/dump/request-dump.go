package dump

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	BLOCK_HEADER   = "----- request received -----"
	BLOCK_FOOTER   = "-----------------------------"
	REDACTED_VALUE = "[redacted]"
	UNKNOWN_CLIENT = "unknown"
)

type Header struct {
	Name  string
	Value string
}

// RequestDump is a detached copy of the request fields that get printed.
// It owns its memory, so it outlives the fasthttp.RequestCtx it was taken from.
type RequestDump struct {
	Client      string
	Method      string
	Path        string
	Query       string
	Headers     []Header
	Body        []byte
	ContentType string
}

func FromRequestCtx(ctx *fasthttp.RequestCtx) *RequestDump {
	d := &RequestDump{
		Client:      clientAddr(ctx.RemoteAddr()),
		Method:      string(ctx.Method()),
		Path:        string(ctx.Path()),
		Query:       string(ctx.URI().QueryString()),
		Body:        append([]byte(nil), ctx.PostBody()...),
		ContentType: string(ctx.Request.Header.ContentType()),
	}

	ctx.Request.Header.VisitAll(func(key, value []byte) {
		d.Headers = append(d.Headers, Header{
			Name:  strings.ToLower(string(key)),
			Value: string(value),
		})
	})

	return d
}

// clientAddr renders a TCP peer as host:port. fasthttp reports a zero
// TCPAddr when no peer is known; that and non-TCP peers yield "".
func clientAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp == nil {
		return ""
	}
	if tcp.IP.IsUnspecified() && tcp.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", tcp.IP.String(), tcp.Port)
}

// Render formats the dump block. Header values whose name matches redact are masked.
// decodeCharset lets a charset declared in Content-Type override UTF-8 for the body.
func (d *RequestDump) Render(redact *regexp.Regexp, decodeCharset bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(BLOCK_HEADER + "\n")

	if d.Client != "" {
		fmt.Fprintf(buf, "client      : %s\n", d.Client)
	} else {
		buf.WriteString("client      : " + UNKNOWN_CLIENT + "\n")
	}

	fmt.Fprintf(buf, "method path : %s %s\n", d.Method, d.Path)

	if d.Query != "" {
		fmt.Fprintf(buf, "query       : %s\n", d.Query)
	}

	buf.WriteString("headers     :\n")
	for _, h := range d.Headers {
		value := h.Value
		if redact != nil && redact.MatchString(h.Name) {
			value = REDACTED_VALUE
		}
		fmt.Fprintf(buf, "  %s: %s\n", h.Name, value)
	}

	if len(d.Body) > 0 {
		buf.WriteString("body        :\n")
		buf.WriteString(DecodeBody(d.Body, d.ContentType, decodeCharset))
		buf.WriteString("\n")
	}

	buf.WriteString(BLOCK_FOOTER + "\n")

	return buf.String()
}
