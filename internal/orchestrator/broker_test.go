package orchestrator

import "testing"

func TestBroker_PublishReachesEverySubscriber(t *testing.T) {
	b := NewBroker()
	a, unsubA := b.Subscribe()
	defer unsubA()
	c, unsubC := b.Subscribe()
	defer unsubC()

	b.Publish(Update{Kind: UpdateTarget, Status: Status{Target: "MiG-21Bis"}})

	for i, ch := range []<-chan Update{a, c} {
		got := <-ch
		if got.Status.Target != "MiG-21Bis" {
			t.Errorf("subscriber %d got %+v", i, got)
		}
	}
}

func TestBroker_SlowSubscriberDropsUpdates(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(Update{Kind: UpdateProgress, Status: Status{Progress: float64(i)}})
	}

	if len(ch) != subscriberBufferSize {
		t.Fatalf("buffered = %d, want %d", len(ch), subscriberBufferSize)
	}
	if first := <-ch; first.Status.Progress != 0 {
		t.Errorf("first update progress = %v, want 0", first.Status.Progress)
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe()

	unsub()
	unsub()
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}

	b.Publish(Update{Kind: UpdateProgress})
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	live, _ := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-live; ok {
		t.Error("existing subscriber not closed")
	}
	late, unsub := b.Subscribe()
	defer unsub()
	if _, ok := <-late; ok {
		t.Error("late subscriber not closed")
	}
}
