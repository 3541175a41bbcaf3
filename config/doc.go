// Package config loads the archive-gate configuration from a YAML file and
// environment variables: the listen address, the archive URLs to watch,
// probe timeout and user agent, the backoff window, the reconcile interval
// and the API rate limit.
package config
