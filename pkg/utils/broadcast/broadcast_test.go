package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	var zero T
	return zero
}

func TestFanOut(t *testing.T) {
	src := make(chan string)
	s := New("test", src)
	defer s.Close()

	a := s.Subscribe()
	b := s.Subscribe()
	src <- "hello"
	assert.Equal(t, "hello", receive(t, a))
	assert.Equal(t, "hello", receive(t, b))

	s.CancelSubscription(a)
	_, ok := <-a
	assert.False(t, ok)

	src <- "again"
	assert.Equal(t, "again", receive(t, b))
}

func TestSlowListenerIsSkipped(t *testing.T) {
	src := make(chan int)
	s := New("slow", src, WithSendTimeout[int](10*time.Millisecond))
	defer s.Close()

	slow := s.Subscribe()
	fast := s.Subscribe()
	done := make(chan []int)
	go func() {
		var got []int
		for i := 0; i < 3; i++ {
			got = append(got, <-fast)
		}
		done <- got
	}()
	for i := 1; i <= 3; i++ {
		src <- i
	}
	assert.Equal(t, []int{1, 2, 3}, <-done)
	// the slow listener got at most the first message while blocked
	select {
	case v := <-slow:
		assert.Equal(t, 1, v)
	default:
	}
}

func TestCloseClosesListeners(t *testing.T) {
	src := make(chan int)
	s := New("close", src)
	ch := s.Subscribe()
	s.Close()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
}
