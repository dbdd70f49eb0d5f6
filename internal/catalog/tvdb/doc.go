// Package tvdb provides access to TheTVDB v4 API for series search, series
// details, and episode listings.
//
// The client handles the login token flow transparently: the bearer token is
// fetched lazily, cached for the client's lifetime, and refreshed once when a
// request comes back 401. Consumers depend on the Searcher interface so tests
// can substitute fakes.
package tvdb
