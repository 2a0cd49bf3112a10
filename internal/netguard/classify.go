package netguard

import "net/netip"

// Classification tables. Order matters where ranges nest: the AWS/GCP
// metadata endpoint 169.254.169.254 sits inside the link-local /16 and
// must be recognized before the broader range.

var cloudMetadataV4 = netip.MustParseAddr("169.254.169.254")

var benchmarkingPrefixes = []netip.Prefix{
	netip.MustParsePrefix("198.18.0.0/15"), // RFC 2544
}

var privateV4Prefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),  // CGNAT, RFC 6598
	netip.MustParsePrefix("192.0.2.0/24"),   // TEST-NET-1
	netip.MustParsePrefix("198.51.100.0/24"),// TEST-NET-2
	netip.MustParsePrefix("203.0.113.0/24"), // TEST-NET-3
	netip.MustParsePrefix("240.0.0.0/4"),    // class E
	netip.MustParsePrefix("fc00::/7"),       // IPv6 ULA
	netip.MustParsePrefix("2001:db8::/32"),  // IPv6 documentation
}

// Classify derives the AddressClass of a single resolved IP address.
//
// Properties:
//   - Pure: no state, no memory, no I/O
//   - Deterministic: same address always yields the same class
//
// IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) are unwrapped first so a
// mapped private address cannot masquerade as IPv6 public space.
func Classify(addr netip.Addr) AddressClass {
	addr = addr.Unmap()

	if !addr.IsValid() {
		return ClassReserved
	}

	if addr == cloudMetadataV4 {
		return ClassCloudMetadata
	}

	if addr.IsLoopback() {
		return ClassLoopback
	}

	// Link-local means the unicast ranges (169.254/16, fe80::/10).
	// Multicast, link-local included, classifies as reserved below.
	if addr.IsLinkLocalUnicast() {
		return ClassLinkLocal
	}

	for _, p := range benchmarkingPrefixes {
		if p.Contains(addr) {
			return ClassBenchmarking
		}
	}

	for _, p := range privateV4Prefixes {
		if p.Contains(addr) {
			return ClassPrivateRFC1918
		}
	}

	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return ClassReserved
		}
	}

	if addr.IsUnspecified() || addr.IsMulticast() || !addr.IsGlobalUnicast() {
		return ClassReserved
	}

	return ClassPublic
}
