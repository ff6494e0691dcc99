package eventbus

import (
	"testing"

	"github.com/google/uuid"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New(4)
	ch, unsubscribe := b.Subscribe("block.receive")
	defer unsubscribe()

	b.Publish("block.receive", 42)

	select {
	case evt := <-ch:
		if evt.Topic != "block.receive" || evt.Payload != 42 {
			t.Fatalf("evt = %+v, want topic=block.receive payload=42", evt)
		}
	default:
		t.Fatal("expected event to be delivered synchronously into the buffered channel")
	}
}

func TestPublishToTopicWithNoSubscribersIsNoop(t *testing.T) {
	b := New(4)
	b.Publish("nobody.listening", "payload") // must not panic or block
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	b := New(4)
	ch, unsubscribe := b.Subscribe("topic")
	unsubscribe()

	b.Publish("topic", "should not arrive")

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed by unsubscribe to yield zero value with ok=false")
	}
}

func TestIndependentSubscriptionsToSameTopicBothReceive(t *testing.T) {
	b := New(4)
	ch1, unsub1 := b.Subscribe("topic")
	ch2, unsub2 := b.Subscribe("topic")
	defer unsub1()
	defer unsub2()

	b.Publish("topic", "hello")

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != "hello" {
				t.Fatalf("evt.Payload = %v, want hello", evt.Payload)
			}
		default:
			t.Fatal("expected every independent subscriber to receive its own copy")
		}
	}
}

func TestUnsubscribingOneSubscriptionLeavesOthersIntact(t *testing.T) {
	b := New(4)
	ch1, unsub1 := b.Subscribe("topic")
	ch2, unsub2 := b.Subscribe("topic")
	defer unsub2()

	unsub1()
	b.Publish("topic", "still here")

	if _, ok := <-ch1; ok {
		t.Fatal("unsubscribed channel should be closed")
	}
	select {
	case evt := <-ch2:
		if evt.Payload != "still here" {
			t.Fatalf("evt.Payload = %v, want 'still here'", evt.Payload)
		}
	default:
		t.Fatal("remaining subscriber should still receive published events")
	}
}

func TestPublishDropsWhenSubscriberBufferIsFull(t *testing.T) {
	b := New(1)
	ch, unsubscribe := b.Subscribe("topic")
	defer unsubscribe()

	var dropped []string
	b.OnDrop(func(topic string, id uuid.UUID) { dropped = append(dropped, topic) })

	b.Publish("topic", "first")  // fills the buffer
	b.Publish("topic", "second") // must be dropped, not block

	if len(dropped) != 1 || dropped[0] != "topic" {
		t.Fatalf("dropped = %v, want one drop for topic", dropped)
	}
	evt := <-ch
	if evt.Payload != "first" {
		t.Fatalf("evt.Payload = %v, want first (second event dropped)", evt.Payload)
	}
}

func TestDefaultBufferSizeAppliedForNonPositiveInput(t *testing.T) {
	b := New(0)
	if b.bufferSize != 16 {
		t.Fatalf("bufferSize = %d, want default 16", b.bufferSize)
	}
}
