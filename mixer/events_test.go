// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"testing"
)

func TestEventQueue_DropsOldest(t *testing.T) {
	t.Parallel()

	q := newEventQueue(3)
	for i := range 5 {
		q.push(Event{Kind: EventStateChanged, State: State(i)})
	}

	got := q.poll()
	if len(got) != 3 {
		t.Fatalf("poll returned %d events, want 3", len(got))
	}
	for i, e := range got {
		if e.State != State(i+2) {
			t.Errorf("event %d state = %d, want %d", i, e.State, i+2)
		}
	}
	if d := q.droppedCount(); d != 2 {
		t.Errorf("dropped = %d, want 2", d)
	}
	if again := q.poll(); again != nil {
		t.Errorf("second poll = %v, want nil", again)
	}
}

func TestEventQueue_Subscribe(t *testing.T) {
	t.Parallel()

	q := newEventQueue(4)
	ch, cancel := q.subscribe(1)

	q.push(Event{Kind: EventChannelEnd})
	// buffer full: dropped for the subscriber, kept for polling
	q.push(Event{Kind: EventChannelVirtual})

	if e := <-ch; e.Kind != EventChannelEnd {
		t.Fatalf("received %v, want %v", e.Kind, EventChannelEnd)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %v", e.Kind)
	default:
	}
	if n := len(q.poll()); n != 2 {
		t.Fatalf("poll returned %d events, want 2", n)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
}

func TestEventQueue_CloseAll(t *testing.T) {
	t.Parallel()

	q := newEventQueue(4)
	a, cancelA := q.subscribe(2)
	b, _ := q.subscribe(2)

	q.closeAll()
	cancelA()

	for _, ch := range []<-chan Event{a, b} {
		if _, ok := <-ch; ok {
			t.Fatal("subscription still open after closeAll")
		}
	}
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind EventKind
		want string
	}{
		{EventChannelEnd, "channel-end"},
		{EventChannelVirtual, "channel-virtual"},
		{EventChannelReal, "channel-real"},
		{EventChannelError, "channel-error"},
		{EventStateChanged, "state-changed"},
		{EventKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
