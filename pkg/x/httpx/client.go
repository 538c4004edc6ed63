package httpx

import (
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"
)

// ProxyEnv selects the proxy mode for clients built with UseEnvProxy.
const ProxyEnv = "PERSONA_HTTP_PROXY"

type ClientOptions struct {
	Timeout time.Duration

	// UseEnvProxy applies PERSONA_HTTP_PROXY semantics:
	// - unset: no proxy (even if HTTP_PROXY / HTTPS_PROXY is set)
	// - "env": ProxyFromEnvironment
	// - URL / host:port: fixed http(s) proxy
	// - socks5://host:port: SOCKS5 dialer
	UseEnvProxy bool

	// Proxy overrides UseEnvProxy when non-empty.
	Proxy string

	// CookieJar enables a cookie jar (required by the platform session).
	CookieJar bool

	// Transport allows providing a pre-configured transport.
	// When nil, it clones http.DefaultTransport.
	Transport *http.Transport
}

func NewClient(opts ClientOptions) (*http.Client, error) {
	var transport *http.Transport
	if opts.Transport != nil {
		transport = opts.Transport.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = nil

	proxyRaw := strings.TrimSpace(opts.Proxy)
	if proxyRaw == "" && opts.UseEnvProxy {
		proxyRaw = strings.TrimSpace(os.Getenv(ProxyEnv))
	}
	if proxyRaw != "" {
		if err := applyProxy(transport, proxyRaw); err != nil {
			return nil, err
		}
	}

	var jar http.CookieJar
	if opts.CookieJar {
		jar, _ = cookiejar.New(nil)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}, nil
}
