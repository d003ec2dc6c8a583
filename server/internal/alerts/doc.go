// Package alerts evaluates per-service rules on every dashboard frame and
// delivers webhooks to Slack, Teams or generic HTTP targets when an alert
// fires or resolves. Conditions read a service's error_rate, score, flag,
// requests, errors or badge tier.
package alerts
