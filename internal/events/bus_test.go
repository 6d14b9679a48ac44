package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceOpenedEvent, 1)

	unsub := bus.Subscribe(func(e DeviceOpenedEvent) {
		received <- e
	})
	defer unsub()

	event := DeviceOpenedEvent{
		DevicePath: "/dev/video0",
		Palette:    17,
		Fourcc:     "YU12",
		Width:      640,
		Height:     480,
		Timestamp:  "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.DevicePath != event.DevicePath {
		t.Errorf("Expected device_path %s, got %s", event.DevicePath, got.DevicePath)
	}
	if got.Fourcc != event.Fourcc {
		t.Errorf("Expected fourcc %s, got %s", event.Fourcc, got.Fourcc)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan DeviceClosedEvent, 1)
	received2 := make(chan DeviceClosedEvent, 1)

	unsub1 := bus.Subscribe(func(e DeviceClosedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e DeviceClosedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(DeviceClosedEvent{DevicePath: "/dev/video0"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	openedReceived := make(chan bool, 1)
	removedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ DeviceOpenedEvent) {
		openedReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ DeviceRemovedEvent) {
		removedReceived <- true
	})
	defer unsub2()

	bus.Publish(DeviceOpenedEvent{DevicePath: "/dev/video0"})
	<-openedReceived

	select {
	case <-removedReceived:
		t.Fatal("Removal subscriber should NOT have received DeviceOpenedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(DeviceRemovedEvent{DevicePath: "/dev/video0"})
	<-removedReceived

	select {
	case <-openedReceived:
		t.Fatal("Open subscriber should NOT have received DeviceRemovedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ControlRollbackEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ControlRollbackEvent{
					DevicePath: "/dev/video0",
					Count:      1,
					Timestamp:  time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	// Read all expected events
	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"DeviceOpened", DeviceOpenedEvent{DevicePath: "/dev/video0"}},
		{"DeviceClosed", DeviceClosedEvent{DevicePath: "/dev/video0"}},
		{"DeviceRemoved", DeviceRemovedEvent{DevicePath: "/dev/video0"}},
		{"ControlRollback", ControlRollbackEvent{DevicePath: "/dev/video0", Count: 2}},
		{"CaptureError", CaptureErrorEvent{DevicePath: "/dev/video0", Error: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case DeviceOpenedEvent:
				unsub = bus.Subscribe(func(e DeviceOpenedEvent) { received <- e })
			case DeviceClosedEvent:
				unsub = bus.Subscribe(func(e DeviceClosedEvent) { received <- e })
			case DeviceRemovedEvent:
				unsub = bus.Subscribe(func(e DeviceRemovedEvent) { received <- e })
			case ControlRollbackEvent:
				unsub = bus.Subscribe(func(e ControlRollbackEvent) { received <- e })
			case CaptureErrorEvent:
				unsub = bus.Subscribe(func(e CaptureErrorEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestEventJSONSerialization(t *testing.T) {
	tests := []struct {
		name  string
		event any
	}{
		{
			"DeviceOpenedEvent",
			DeviceOpenedEvent{
				DevicePath: "/dev/video0",
				Palette:    17,
				Fourcc:     "YU12",
				Width:      640,
				Height:     480,
				Timestamp:  "2025-01-27T10:30:00Z",
			},
		},
		{
			"ControlRollbackEvent",
			ControlRollbackEvent{
				DevicePath: "/dev/video0",
				Count:      1,
				Timestamp:  "2025-01-27T10:30:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result map[string]any
			if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
				t.Fatalf("Failed to unmarshal: %v", unmarshalErr)
			}

			if len(result) == 0 {
				t.Fatal("Unmarshaled to empty object")
			}
		})
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[DeviceRemovedEvent](bus, ch)
	defer unsub()

	event := DeviceRemovedEvent{DevicePath: "/dev/video0"}
	bus.Publish(event)

	received := <-ch
	removedEvent, ok := received.(DeviceRemovedEvent)
	if !ok {
		t.Fatalf("Expected DeviceRemovedEvent, got %T", received)
	}
	if removedEvent.DevicePath != event.DevicePath {
		t.Errorf("Expected device_path %s, got %s", event.DevicePath, removedEvent.DevicePath)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[DeviceClosedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(DeviceClosedEvent{DevicePath: "/dev/video0"})
		done <- true
	}()

	<-done // Should complete without blocking
}
