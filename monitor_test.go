package pipeline

import (
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
)

func TestMonitor(t *testing.T) {
	t.Run("wait_returns_immediately_if_already_signaled", func(t *testing.T) {
		m := NewMonitor()
		m.Signal()

		done := make(chan error, 1)
		go func() { done <- m.Wait() }()

		select {
		case err := <-done:
			td.CmpNoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Wait blocked despite a prior Signal")
		}
	})

	t.Run("wait_blocks_until_signal", func(t *testing.T) {
		m := NewMonitor()
		done := make(chan error, 1)
		go func() { done <- m.Wait() }()

		select {
		case <-done:
			t.Fatal("Wait returned before Signal was ever called")
		case <-time.After(20 * time.Millisecond):
		}

		m.Signal()

		select {
		case err := <-done:
			td.CmpNoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Wait did not unblock after Signal")
		}
	})

	t.Run("signal_is_idempotent", func(t *testing.T) {
		m := NewMonitor()
		m.Signal()
		m.Signal()
		td.CmpNoError(t, m.Wait())
	})

	t.Run("reset_then_wait_blocks_again", func(t *testing.T) {
		m := NewMonitor()
		m.Signal()
		td.CmpNoError(t, m.Wait())

		m.Reset()

		done := make(chan error, 1)
		go func() { done <- m.Wait() }()

		select {
		case <-done:
			t.Fatal("Wait returned after Reset with no new Signal")
		case <-time.After(20 * time.Millisecond):
		}

		m.Signal()
		select {
		case err := <-done:
			td.CmpNoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Wait never unblocked")
		}
	})

	t.Run("destroy_unblocks_waiters", func(t *testing.T) {
		m := NewMonitor()
		done := make(chan error, 1)
		go func() { done <- m.Wait() }()

		time.Sleep(20 * time.Millisecond)
		m.Destroy()

		select {
		case err := <-done:
			td.CmpNoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Destroy did not unblock a waiter")
		}
	})

	t.Run("destroy_is_idempotent", func(t *testing.T) {
		m := NewMonitor()
		m.Destroy()
		m.Destroy()
	})

	t.Run("signal_and_reset_tolerate_nil_receiver", func(t *testing.T) {
		var m *Monitor
		m.Signal()
		m.Reset()
		m.Destroy()
		td.CmpError(t, m.Wait())
	})
}
