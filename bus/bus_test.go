package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestPublishReachesExactSubscriber(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("node", "event"))
	conn.Publish(conn.NewMessage(T("node", "event"), "LEDOn", false))

	expectOneOf(t, sub, "LEDOn")
}

func TestRetainedReplayedOnSubscribe(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("node", "status", "battery"), "3712", true))
	sub := conn.Subscribe(T("node", "status", "battery"))

	expectOneOf(t, sub, "3712")
}

func TestSingleLevelWildcard(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	field := c.Subscribe(T("node", "status", "+"))
	any2 := c.Subscribe(T("node", "+", "+"))
	never := c.Subscribe(T("node", "+", "indicator", "x"))

	c.Publish(b.NewMessage(T("node", "status", "indicator"), "on", false))
	expectOneOf(t, field, "on")
	expectOneOf(t, any2, "on")
	expectNoMessage(t, never)

	c.Publish(b.NewMessage(T("node", "event"), "short", false))
	expectNoMessage(t, field)
	expectNoMessage(t, any2)
}

func TestMultiLevelWildcard(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	nodeAll := c.Subscribe(T("node", "#"))
	all := c.Subscribe(T("#"))
	status := c.Subscribe(T("node", "status", "#"))
	exact := c.Subscribe(T("node"))

	c.Publish(b.NewMessage(T("node"), "p1", false))
	expectOneOf(t, nodeAll, "p1")
	expectOneOf(t, all, "p1")
	expectOneOf(t, exact, "p1")
	expectNoMessage(t, status)

	c.Publish(b.NewMessage(T("node", "status", "asleep"), "p2", false))
	expectOneOf(t, nodeAll, "p2")
	expectOneOf(t, all, "p2")
	expectOneOf(t, status, "p2")
	expectNoMessage(t, exact)
}

func TestRetainedWithWildcards(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("node"), "r0", true))
	c.Publish(b.NewMessage(T("node", "status"), "r1", true))
	c.Publish(b.NewMessage(T("node", "status", "battery"), "r2", true))
	c.Publish(b.NewMessage(T("node", "event"), "r3", true))

	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("node", "#")), 4),
		[]string{"r0", "r1", "r2", "r3"})
	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("node", "+", "#")), 3),
		[]string{"r1", "r2", "r3"})
	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("node", "+")), 2),
		[]string{"r1", "r3"})
}

func TestRetainedReadIgnoresQueueLength(t *testing.T) {
	b := NewBus(1)
	c := b.NewConnection("test")
	for _, f := range []string{"indicator", "angle", "battery_mv", "asleep"} {
		c.Publish(b.NewMessage(T("node", "status", f), f, true))
	}
	c.Publish(b.NewMessage(T("node", "event"), "not retained", false))

	var got []string
	for _, m := range c.Retained(T("node", "status", "+")) {
		got = append(got, m.Payload.(string))
	}
	assertUnorderedEqual(t, got, []string{"indicator", "angle", "battery_mv", "asleep"})
	if n := len(c.Retained(T("node", "event"))); n != 0 {
		t.Fatalf("non-retained message returned: %d", n)
	}
}

func TestRetainedNilClears(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("node", "status", "asleep"), "true", true))
	c.Publish(b.NewMessage(T("node", "status", "battery"), "3600", true))
	c.Publish(b.NewMessage(T("node", "status", "asleep"), nil, true))

	got := drainPayloads(t, c.Subscribe(T("node", "status", "#")), 1)
	if got[0] != "3600" {
		t.Fatalf("expected only battery after clear, got %v", got)
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("node", "event"))

	for _, p := range []string{"a", "b", "c"} {
		c.Publish(b.NewMessage(T("node", "event"), p, false))
	}
	assertUnorderedEqual(t, drainPayloads(t, s, 2), []string{"b", "c"})
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("node", "event"))
	s.Unsubscribe()
	s.Unsubscribe()

	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	c.Publish(b.NewMessage(T("node", "event"), "late", false))
}

func TestRequestWaitGetsReply(t *testing.T) {
	b := NewBus(8)
	client := b.NewConnection("http")
	worker := b.NewConnection("radio")

	reqs := worker.Subscribe(T("radio", "exchange"))
	defer worker.Unsubscribe(reqs)
	go func() {
		if msg, ok := <-reqs.Channel(); ok {
			worker.Reply(msg, "LEDOn", false)
		}
	}()

	req := b.NewMessage(T("radio", "exchange"), "on", false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := client.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if s, _ := reply.Payload.(string); s != "LEDOn" {
		t.Fatalf("reply payload = %#v", reply.Payload)
	}
	if !req.CanReply() || !topicsEqual(reply.Topic, req.ReplyTo) {
		t.Fatalf("reply topic %v, request ReplyTo %v", reply.Topic, req.ReplyTo)
	}
}

func TestRequestWaitHonoursContext(t *testing.T) {
	b := NewBus(8)
	client := b.NewConnection("http")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := client.RequestWait(ctx, b.NewMessage(T("radio", "exchange"), "on", false)); err == nil {
		t.Fatal("expected context error with no responder")
	}
}

func TestRequestManualSubscription(t *testing.T) {
	b := NewBus(8)
	client := b.NewConnection("http")
	worker := b.NewConnection("radio")

	reqs := worker.Subscribe(T("radio", "exchange"))
	defer worker.Unsubscribe(reqs)

	replies := client.Request(b.NewMessage(T("radio", "exchange"), "btlvl", false))
	defer client.Unsubscribe(replies)

	go func() {
		if msg, ok := <-reqs.Channel(); ok {
			worker.Reply(msg, map[string]any{"mv": 3712}, false)
		}
	}()

	select {
	case got := <-replies.Channel():
		m, ok := got.Payload.(map[string]any)
		if !ok || m["mv"] != 3712 {
			t.Fatalf("unexpected reply: %#v", got.Payload)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for reply")
	}
}

func TestReplyWithoutReplyToIsIgnored(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	all := c.Subscribe(T("#"))
	c.Reply(b.NewMessage(T("radio", "exchange"), "x", false), "y", false)
	expectNoMessage(t, all)
}

func TestTokenMustBeComparable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for slice token")
		}
	}()
	_ = T([]byte{1, 2, 3})
}

// ---- helpers ----

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if s, ok := got.Payload.(string); !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(40 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			s, ok := m.Payload.(string)
			if !ok {
				t.Fatalf("non-string payload: %#v", m.Payload)
			}
			out = append(out, s)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
