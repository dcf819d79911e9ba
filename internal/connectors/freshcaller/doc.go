// Package freshcaller talks to the Freshcaller REST API.
//
// It provides the rate-limited HTTP client, the paginator that drains a
// query across every result page, the compiled-in stream registry with its
// embedded JSON schemas, and the tap configuration.
//
// Every request is authenticated with the account API key in the
// X-Api-Auth header. The account allows 100 calls per rolling minute; the
// client paces itself below that and retries HTTP 429 with exponential
// backoff. Any other non-200 response is fatal.
package freshcaller
