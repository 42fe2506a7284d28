package market

import (
	"testing"
	"time"
)

func TestFeedHandleMessage(t *testing.T) {
	feed := NewFeed("wss://example", time.Second, time.Second, nil)

	feed.handleMessage([]byte(`{"tick":{"symbol":"BTCUSD","last":48123.5}}`))
	if price, ok := feed.Last("BTCUSD"); !ok || price != 48123.5 {
		t.Fatalf("numeric price not cached: %v %v", price, ok)
	}

	// Some tick payloads quote prices as strings.
	feed.handleMessage([]byte(`{"tick":{"symbol":"ETHUSD","last":"1820.25"}}`))
	if price, ok := feed.Last("ETHUSD"); !ok || price != 1820.25 {
		t.Fatalf("string price not cached: %v %v", price, ok)
	}
}

func TestFeedIgnoresBadPayloads(t *testing.T) {
	feed := NewFeed("wss://example", time.Second, time.Second, nil)

	feed.handleMessage([]byte(`not json`))
	feed.handleMessage([]byte(`{"result":"pong"}`))
	feed.handleMessage([]byte(`{"tick":{"symbol":"BTCUSD","last":-1}}`))
	feed.handleMessage([]byte(`{"tick":{"symbol":"BTCUSD","last":"n/a"}}`))

	if _, ok := feed.Last("BTCUSD"); ok {
		t.Fatalf("invalid prices must not be cached")
	}
}
