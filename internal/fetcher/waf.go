package fetcher

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/projectdiscovery/cdncheck"
	"github.com/rs/zerolog/log"
)

// defaultInspectTimeout bounds the DNS lookups made while attributing a block
const defaultInspectTimeout = 5 * time.Second

// Inspector names the WAF or CDN in front of a host
type Inspector interface {
	Inspect(ctx context.Context, host string) string
}

// CDNInspector attributes blocks using cdncheck over the host's CNAME and addresses
type CDNInspector struct {
	client   *cdncheck.Client
	resolver *net.Resolver
	timeout  time.Duration
}

// NewCDNInspector creates an inspector backed by the bundled cdncheck ranges
func NewCDNInspector() *CDNInspector {
	return &CDNInspector{
		client:   cdncheck.New(),
		resolver: net.DefaultResolver,
		timeout:  defaultInspectTimeout,
	}
}

// Inspect returns the provider name, or an empty string when the host is not fronted by a
// known WAF or CDN
func (i *CDNInspector) Inspect(ctx context.Context, host string) string {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if cname, err := i.resolver.LookupCNAME(ctx, host); err == nil && cname != host+"." {
		clean := strings.TrimSuffix(cname, ".")
		if matched, provider, itemType, err := i.client.CheckSuffix(clean); matched && err == nil && provider != "" {
			log.Debug().Str("host", host).Str("provider", provider).Str("type", itemType).Msg("block attributed via cname")
			return provider
		}
	}

	addrs, err := i.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return ""
	}

	for _, addr := range addrs {
		matched, provider, itemType, err := i.client.Check(addr.IP)
		if matched && err == nil && provider != "" {
			log.Debug().Str("host", host).Str("provider", provider).Str("type", itemType).Msg("block attributed via address")
			return provider
		}
	}

	return ""
}
