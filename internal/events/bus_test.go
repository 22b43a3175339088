package events

import "testing"

func TestBusPublishOrder(t *testing.T) {
	b := NewBus[int]()
	var got []int
	b.Subscribe(func(v int) { got = append(got, v) })
	b.Subscribe(func(v int) { got = append(got, v*10) })

	b.Publish(1)
	b.Publish(2)

	want := []int{1, 10, 2, 20}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus[string]()
	calls := 0
	unsub := b.Subscribe(func(string) { calls++ })
	b.Publish("a")
	unsub()
	unsub()
	b.Publish("b")

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", b.Len())
	}
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus[int]
	b.Publish(1) // must not panic
}

func TestSubscribeDuringPublish(t *testing.T) {
	b := NewBus[int]()
	inner := 0
	b.Subscribe(func(int) {
		b.Subscribe(func(int) { inner++ })
	})
	b.Publish(1)
	if inner != 0 {
		t.Errorf("subscriber added during publish should not see that event, got %d calls", inner)
	}
	b.Publish(2)
	if inner != 1 {
		t.Errorf("expected 1 inner call, got %d", inner)
	}
}
