package netguard_test

import (
	"context"
	"fmt"
	"net/netip"
)

// fakeResolver serves canned DNS answers keyed by hostname.
type fakeResolver struct {
	answers map[string][]netip.Addr
	err     error
}

func (f *fakeResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	if f.err != nil {
		return nil, f.err
	}
	addrs, ok := f.answers[host]
	if !ok {
		return nil, fmt.Errorf("lookup %s: no such host", host)
	}
	return addrs, nil
}

func resolverFor(answers map[string][]string) *fakeResolver {
	parsed := make(map[string][]netip.Addr, len(answers))
	for host, addrs := range answers {
		for _, a := range addrs {
			parsed[host] = append(parsed[host], netip.MustParseAddr(a))
		}
	}
	return &fakeResolver{answers: parsed}
}

// noEnv is an environment with the kill switch unset.
func noEnv(string) string { return "" }
