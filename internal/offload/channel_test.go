package offload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type counterHost struct {
	calls []int
}

func TestDrainRunsJobsInSubmissionOrder(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	host := &counterHost{}

	futures := make([]*Future[int], 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		futures = append(futures, Submit(tx, func(h *counterHost) int {
			h.calls = append(h.calls, i)
			return i * 10
		}))
	}

	if n := rx.Drain(host); n != 5 {
		t.Fatalf("Drain() ran %d jobs, want 5", n)
	}
	for i, want := range []int{0, 1, 2, 3, 4} {
		if host.calls[i] != want {
			t.Errorf("call %d = %d, want %d", i, host.calls[i], want)
		}
	}
	for i, f := range futures {
		got, err := f.Wait()
		if err != nil {
			t.Fatalf("future %d: unexpected error %v", i, err)
		}
		if got != i*10 {
			t.Errorf("future %d = %d, want %d", i, got, i*10)
		}
	}
}

func TestRunReturnsZeroSizeResult(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	host := &counterHost{}

	done := make(chan error, 1)
	go func() {
		_, err := Run(tx, func(h *counterHost) struct{} {
			h.calls = append(h.calls, 1)
			return struct{}{}
		})
		done <- err
	}()

	if err := rx.Tick(host); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
	if len(host.calls) != 1 {
		t.Errorf("job ran %d times, want 1", len(host.calls))
	}
}

func TestSubmitAfterReceiverClosed(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	rx.Close()

	_, err := Run(tx, func(*counterHost) int { return 1 })
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Run() error = %v, want ErrDisconnected", err)
	}
}

func TestCloseAbandonsPendingJobs(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	f := Submit(tx, func(*counterHost) string { return "never" })

	rx.Close()

	got, err := f.Wait()
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Wait() error = %v, want ErrDisconnected", err)
	}
	if got != "" {
		t.Errorf("Wait() value = %q, want zero value", got)
	}
}

func TestTryTickOnEmptyQueue(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	defer tx.Close()

	if err := rx.TryTick(&counterHost{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("TryTick() error = %v, want ErrEmpty", err)
	}
}

func TestDisconnectAfterAllSendersClosed(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	clone := tx.Clone()
	host := &counterHost{}

	Submit(clone, func(h *counterHost) int { return 7 })
	tx.Close()
	clone.Close()

	// Queued work still runs after the last sender is gone.
	if err := rx.TryTick(host); err != nil {
		t.Fatalf("first TryTick() error = %v, want nil", err)
	}
	if err := rx.TryTick(host); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("TryTick() error = %v, want ErrDisconnected", err)
	}
	if err := rx.Tick(host); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Tick() error = %v, want ErrDisconnected", err)
	}
}

func TestSubmitOnClosedSender(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	keep := tx.Clone()
	defer keep.Close()
	tx.Close()
	tx.Close() // second close is a no-op

	f := Submit(tx, func(*counterHost) int { return 1 })
	if _, err := f.Wait(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Wait() error = %v, want ErrDisconnected", err)
	}
	if rx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rx.Len())
	}
}

func TestTickBlocksUntilJobArrives(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	host := &counterHost{}

	ticked := make(chan error, 1)
	go func() { ticked <- rx.Tick(host) }()

	select {
	case <-ticked:
		t.Fatal("Tick() returned before any job was submitted")
	case <-time.After(20 * time.Millisecond):
	}

	f := Submit(tx, func(h *counterHost) int { return 3 })
	select {
	case err := <-ticked:
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Tick() did not wake up")
	}
	if v, _ := f.Wait(); v != 3 {
		t.Errorf("Wait() = %d, want 3", v)
	}
}

func TestJobPanicIsReported(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	f := Submit(tx, func(*counterHost) int { panic("boom") })

	rx.Drain(&counterHost{})

	if _, err := f.Wait(); !errors.Is(err, ErrJobPanicked) {
		t.Fatalf("Wait() error = %v, want ErrJobPanicked", err)
	}
}

func TestConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	tx, rx := NewChannel[*counterHost]()
	const producers, perProducer = 4, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		s := tx.Clone()
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			defer s.Close()
			for i := 0; i < perProducer; i++ {
				v := p*1000 + i
				Submit(s, func(h *counterHost) struct{} {
					h.calls = append(h.calls, v)
					return struct{}{}
				})
			}
		}(p)
	}
	wg.Wait()
	tx.Close()

	host := &counterHost{}
	if n := rx.Drain(host); n != producers*perProducer {
		t.Fatalf("Drain() ran %d jobs, want %d", n, producers*perProducer)
	}
	last := map[int]int{}
	for _, v := range host.calls {
		p, i := v/1000, v%1000
		if prev, ok := last[p]; ok && i <= prev {
			t.Fatalf("producer %d: job %d ran after %d", p, i, prev)
		}
		last[p] = i
	}
}

func TestFutureFirstResolutionWins(t *testing.T) {
	f := newFuture[int]()
	f.resolve(1, nil)
	f.resolve(2, nil)
	f.abandon()

	for i := 0; i < 2; i++ {
		got, err := f.Wait()
		if err != nil || got != 1 {
			t.Fatalf("Wait() = (%d, %v), want (1, nil)", got, err)
		}
	}
	if !f.Ready() {
		t.Error("Ready() = false after resolve")
	}
}

func TestWaitContextCancelled(t *testing.T) {
	tx, _ := NewChannel[*counterHost]()
	f := Submit(tx, func(*counterHost) int { return 1 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.WaitContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitContext() error = %v, want context.Canceled", err)
	}
}
