package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	netproxy "golang.org/x/net/proxy"
)

func ProxyFuncFromString(raw string) (func(*http.Request) (*url.URL, error), error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch strings.ToLower(raw) {
	case "0", "false", "off", "no", "none", "direct":
		return nil, nil
	case "env":
		return http.ProxyFromEnvironment, nil
	default:
		u, err := ParseProxyURL(raw)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "socks5" {
			return nil, fmt.Errorf("socks5 proxy %q must be applied as a dialer", u.Host)
		}
		return http.ProxyURL(u), nil
	}
}

func ParseProxyURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty proxy url")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported scheme %q (only http/https/socks5)", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// applyProxy configures transport for raw. SOCKS5 proxies replace the dialer,
// everything else goes through transport.Proxy.
func applyProxy(transport *http.Transport, raw string) error {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(lower, "socks5://") {
		fn, err := ProxyFuncFromString(raw)
		if err != nil {
			return err
		}
		transport.Proxy = fn
		return nil
	}

	u, err := ParseProxyURL(raw)
	if err != nil {
		return err
	}
	var auth *netproxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &netproxy.Auth{User: u.User.Username(), Password: pass}
	}
	dialer, err := netproxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{})
	if err != nil {
		return fmt.Errorf("socks5 proxy %s: %w", u.Host, err)
	}
	ctxDialer, ok := dialer.(netproxy.ContextDialer)
	if !ok {
		return fmt.Errorf("socks5 proxy %s: dialer does not support contexts", u.Host)
	}
	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return ctxDialer.DialContext(ctx, network, addr)
	}
	return nil
}
