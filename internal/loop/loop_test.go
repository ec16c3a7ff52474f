package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
)

func TestLoop_RunsTasksInPostOrder(t *testing.T) {
	l := New(8, zerolog.Nop())

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post(%d) rejected", i)
		}
	}

	if n := l.RunPending(); n != 5 {
		t.Fatalf("RunPending ran %d tasks, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v", got)
		}
	}
	if n := l.RunPending(); n != 0 {
		t.Errorf("second RunPending ran %d tasks", n)
	}
}

func TestLoop_PostAfterClose(t *testing.T) {
	l := New(1, zerolog.Nop())
	l.Close()
	l.Close()

	if l.Post(func() {}) {
		t.Error("Post after Close should return false")
	}
	if !l.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run on closed loop = %v", err)
	}
}

func TestLoop_PanickingTaskDoesNotStopLoop(t *testing.T) {
	l := New(4, zerolog.Nop())
	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })

	if n := l.RunPending(); n != 2 {
		t.Fatalf("RunPending = %d, want 2", n)
	}
	if !ran {
		t.Error("task after panic did not run")
	}
	executed, panics := l.Stats()
	if executed != 2 || panics != 1 {
		t.Errorf("stats = %d executed, %d panics", executed, panics)
	}
}

func TestLoop_RunUntilStopsWhenConditionHolds(t *testing.T) {
	l := New(4, zerolog.Nop())
	done := false

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Post(func() { done = true })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.RunUntil(ctx, func() bool { return done }); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if !done {
		t.Error("condition not reached")
	}
}

func TestLoop_RunStopsOnContext(t *testing.T) {
	l := New(4, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run = %v, want deadline exceeded", err)
	}
}

func TestLoop_CloseUnblocksPost(t *testing.T) {
	l := New(1, zerolog.Nop())
	l.Post(func() {})

	result := make(chan bool, 1)
	go func() { result <- l.Post(func() {}) }()

	time.Sleep(10 * time.Millisecond)
	l.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("blocked Post should fail after Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Post still blocked after Close")
	}
}

// Property: tasks posted concurrently from many goroutines all run exactly
// once on the draining goroutine, and each poster's tasks keep their order.
func TestProperty_ConcurrentPostsRunExactlyOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every posted task runs once, per-poster order kept", prop.ForAll(
		func(posters int, perPoster int) bool {
			l := New(4, zerolog.Nop())
			total := posters * perPoster

			seen := make(map[[2]int]int)
			last := make([]int, posters)
			for i := range last {
				last[i] = -1
			}
			ordered := true
			count := 0

			var wg sync.WaitGroup
			for p := 0; p < posters; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perPoster; i++ {
						i := i
						l.Post(func() {
							seen[[2]int{p, i}]++
							if i <= last[p] {
								ordered = false
							}
							last[p] = i
							count++
						})
					}
				}(p)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := l.RunUntil(ctx, func() bool { return count == total }); err != nil {
				return false
			}
			wg.Wait()
			l.Close()

			if len(seen) != total {
				return false
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return ordered
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}
