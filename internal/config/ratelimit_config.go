package config

import (
	"net/netip"
	"strconv"
	"strings"
)

type RateLimitConfig interface {
	GetLoginRequestsPerMinute() int
	GetLoginBurst() int
	GetTrustedProxies() []netip.Prefix
}

type RateLimits struct{}

var _ RateLimitConfig = RateLimits{}

func (RateLimits) GetLoginRequestsPerMinute() int {
	return intEnv("LOGIN_RATE_PER_MINUTE", 10)
}

func (RateLimits) GetLoginBurst() int {
	return intEnv("LOGIN_RATE_BURST", 5)
}

// GetTrustedProxies reads TRUSTED_PROXIES as a comma separated list of IPs
// or CIDRs. Forwarding headers are only believed from these peers.
// Unparseable entries are skipped.
func (RateLimits) GetTrustedProxies() []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

func intEnv(envVar string, defaultValue int) int {
	n, err := strconv.Atoi(GetEnv(envVar, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
