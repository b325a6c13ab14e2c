// Package tor routes redirect resolution traffic through a SOCKS5 proxy,
// either an existing one (Tor, ssh -D, a corporate proxy) or an embedded
// Tor daemon started with tornago.
//
// Grounding redirect endpoints are tracking endpoints: each HEAD request
// tells the endpoint operator who followed which citation. Routing the
// requests through Tor keeps the research host's address out of that log.
//
// Create a Client and hand its HTTP client to the resolver rather than
// relying on global proxy settings.
package tor
