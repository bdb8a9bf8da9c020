package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

type sample struct {
	method      string
	path        string
	body        []byte
	contentType string
	headers     map[string]string
}

// Fires a fixed set of requests at a running targetapi so the dumps can be
// eyeballed on its console.
func main() {
	target := flag.String("target", "http://localhost:8000", "Base URL of the targetapi server")
	rounds := flag.Int("n", 1, "How many times to send the sample set")
	flag.Parse()

	base := strings.TrimSuffix(*target, "/")
	client := &fasthttp.Client{Name: "targetapi-traffic"}

	samples := []sample{
		{method: "GET", path: "/"},
		{method: "GET", path: "/?theme=dark&lang=ja"},
		{method: "POST", path: "/", body: []byte(`{"notifications":true}`), contentType: "application/json"},
		{method: "POST", path: "/", body: []byte{0x66, 0x6f, 0x6f, 0xff, 0xfe}, contentType: "application/octet-stream"},
		{method: "POST", path: "/plans", body: []byte(`{"plan":"pro"}`), contentType: "application/json"},
		{method: "POST", path: "/plans/", body: []byte("redirect me")},
		{method: "GET", path: "/plans"},
		{method: "GET", path: "/missing"},
		{method: "OPTIONS", path: "/", headers: map[string]string{
			"Origin":                         "http://localhost:5173",
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": "content-type",
		}},
	}

	failed := 0
	for round := 0; round < *rounds; round++ {
		for _, p := range samples {
			if err := send(client, base, p); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", p.method, p.path, err)
				failed++
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func send(client *fasthttp.Client, base string, p sample) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(base + p.path)
	req.Header.SetMethod(p.method)
	if p.contentType != "" {
		req.Header.SetContentType(p.contentType)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if len(p.body) > 0 {
		req.SetBody(p.body)
	}

	start := time.Now()
	if err := client.DoTimeout(req, resp, 5*time.Second); err != nil {
		return err
	}

	fmt.Printf("%-7s %-22s -> %d in %v: %s\n", p.method, p.path, resp.StatusCode(), time.Since(start).Round(time.Millisecond), resp.Body())
	return nil
}
