package events_test

import (
	"testing"

	"github.com/ardanlabs/chainsync/foundation/events"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestEvents(t *testing.T) {
	t.Log("Given the need to fan out notifications.")
	{
		evts := events.New[string]()

		a := evts.Subscribe("a")
		b := evts.Subscribe("b")

		if evts.Subscribe("a") != a {
			t.Fatalf("\t%s\tShould return the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould return the same channel for the same id.", success)

		evts.Publish("render")

		for _, ch := range []<-chan string{a, b} {
			if got := <-ch; got != "render" {
				t.Fatalf("\t%s\tShould deliver the event to every subscriber: %q", failed, got)
			}
		}
		t.Logf("\t%s\tShould deliver the event to every subscriber.", success)

		if err := evts.Unsubscribe("a"); err != nil {
			t.Fatalf("\t%s\tShould be able to unsubscribe: %v", failed, err)
		}
		if _, ok := <-a; ok {
			t.Fatalf("\t%s\tShould close the channel on unsubscribe.", failed)
		}
		t.Logf("\t%s\tShould close the channel on unsubscribe.", success)

		if err := evts.Unsubscribe("a"); err == nil {
			t.Fatalf("\t%s\tShould fail to unsubscribe twice.", failed)
		}
		t.Logf("\t%s\tShould fail to unsubscribe twice.", success)

		for i := 0; i < 200; i++ {
			evts.Publish("flood")
		}
		t.Logf("\t%s\tShould not block on a slow subscriber.", success)

		evts.Shutdown()
		if evts.Len() != 0 {
			t.Fatalf("\t%s\tShould remove every subscriber on shutdown.", failed)
		}
		t.Logf("\t%s\tShould remove every subscriber on shutdown.", success)
	}
}
