package utils

import "testing"

func TestNonBlockingEnqueueOnFullChannel(t *testing.T) {
	ch := make(chan int, 1)
	NonBlockingEnqueue(ch, 1)
	NonBlockingEnqueue(ch, 2)
	got := []int{<-ch, <-ch}
	if got[0]+got[1] != 3 {
		t.Fatalf("expected both items delivered, got %v", got)
	}
}

func TestPercent(t *testing.T) {
	if Percent(5, 0) != 0 {
		t.Fatal("unknown total must report 0")
	}
	if Percent(50, 200) != 25 {
		t.Fatalf("unexpected percent %v", Percent(50, 200))
	}
}
