// Package price holds the domain model for persisted price observations.
package price

import "time"

// TimestampFormat is the wire format for observation timestamps in API
// responses: ISO-8601 with microsecond precision, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Record is one persisted price observation for one asset at one point in
// time. Rows are append-only: never updated, never deleted by the collector.
type Record struct {
	ID         int64     `db:"id"`
	CurrencyID string    `db:"currency_id"`
	Value      float64   `db:"currency_value"`
	Timestamp  time.Time `db:"timestamp"`
}

// Quote is the per-asset entry in the /price response.
type Quote struct {
	USD       float64 `json:"usd"`
	Timestamp string  `json:"timestamp"`
}

// Asset ties a provider currency identifier to the short code used in API
// responses.
type Asset struct {
	ProviderID string
	Code       string
}

// The tracked set is fixed. Order here is the order assets are requested from
// the provider and queried from storage.
var assets = []Asset{
	{ProviderID: "bitcoin", Code: "btc"},
	{ProviderID: "ethereum", Code: "eth"},
	{ProviderID: "zenon-2", Code: "znn"},
	{ProviderID: "quasar-2", Code: "qsr"},
}

var codeByProviderID = func() map[string]string {
	m := make(map[string]string, len(assets))
	for _, a := range assets {
		m[a.ProviderID] = a.Code
	}
	return m
}()

// Assets returns the fixed tracked asset set.
func Assets() []Asset {
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out
}

// CodeFor maps a provider currency identifier to its short code. The second
// return is false for identifiers outside the tracked set.
func CodeFor(providerID string) (string, bool) {
	code, ok := codeByProviderID[providerID]
	return code, ok
}
