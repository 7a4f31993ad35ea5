package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	"golang.org/x/net/proxy"
)

const httpTimeout = 15 * time.Second

// NewHTTPClient builds the client used for YouTube requests. An empty
// proxyStr yields a direct client; http, https, socks5 and socks4 proxies are supported.
func NewHTTPClient(proxyStr string) (*http.Client, error) {
	if proxyStr == "" {
		return &http.Client{Timeout: httpTimeout}, nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}

	var transport *http.Transport
	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	case "socks5", "socks4":
		// socks4 is registered with proxy.FromURL by the go-socks4 import.
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("%s dialer: %w", proxyURL.Scheme, err)
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}

	slog.Info("using proxy for YouTube", "scheme", proxyURL.Scheme, "host", proxyURL.Host)
	return &http.Client{Timeout: httpTimeout, Transport: transport}, nil
}
