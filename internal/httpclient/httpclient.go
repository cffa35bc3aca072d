package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

const proxyModeEnv = "ITGURU_PROXY_MODE"

// New returns an http.Client configured for outbound requests.
//
// It respects HTTP(S)_PROXY/ALL_PROXY/NO_PROXY by default; set
// ITGURU_PROXY_MODE=direct to force direct connections.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(logger),
	}
}

// Transport returns an http.Transport clone with the proxy policy applied.
func Transport(logger logging.Logger) *http.Transport {
	log := logging.OrNop(logger)

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{Proxy: proxyFunc(log)}
	}

	transport := base.Clone()
	transport.Proxy = proxyFunc(log)
	return transport
}

func proxyFunc(logger logging.Logger) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(proxyModeEnv))) {
		case "direct", "none", "off":
			return nil, nil
		default:
		}

		proxyURL, err := http.ProxyFromEnvironment(req)
		if err != nil {
			logger.Warn("Proxy resolution failed: %v", err)
			return nil, err
		}
		return proxyURL, nil
	}
}
