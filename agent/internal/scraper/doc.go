// Package scraper produces the cumulative traffic Summary the agent scores on
// every tick.
//
// Two sources exist. The simulated source advances a pkg/simulator instance
// once per Scrape. The prometheus source fetches an application's text
// exposition and groups its request and error counters by a service label
// (app_requests_total{endpoint} and app_request_errors_total{endpoint} by
// default). Credentials (API key, bearer token, basic) are applied to each
// request by authorize in base.go.
package scraper
