//go:build bench

package mathpage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// BenchmarkResolvePoolSize benchmarks pool size calculation.
func BenchmarkResolvePoolSize(b *testing.B) {
	workers := []int{0, 1, 2, 4, 8}

	for _, w := range workers {
		b.Run(workerName(w), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = ResolvePoolSize(w)
			}
		})
	}
}

func workerName(w int) string {
	if w == 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", w)
}

// BenchmarkEnginePoolAcquireRelease benchmarks the lease cycle on a warm pool.
func BenchmarkEnginePoolAcquireRelease(b *testing.B) {
	sizes := []int{1, 2, 4, 8}
	ctx := context.Background()

	for _, size := range sizes {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			pool := NewEnginePool(size, countingFactory(new(atomic.Int32)))
			defer pool.Close()

			engines := make([]Engine, size)
			for i := range engines {
				engines[i], _ = pool.Acquire(ctx)
			}
			for _, e := range engines {
				pool.Release(e)
			}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				e, _ := pool.Acquire(ctx)
				pool.Release(e)
			}
		})
	}
}

// BenchmarkEnginePoolContention benchmarks many goroutines sharing few engines.
func BenchmarkEnginePoolContention(b *testing.B) {
	goroutines := []int{2, 8, 32}
	ctx := context.Background()

	for _, g := range goroutines {
		b.Run(fmt.Sprintf("goroutines_%d", g), func(b *testing.B) {
			pool := NewEnginePool(2, countingFactory(new(atomic.Int32)))
			defer pool.Close()

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				var wg sync.WaitGroup
				for j := 0; j < g; j++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						e, _ := pool.Acquire(ctx)
						pool.Release(e)
					}()
				}
				wg.Wait()
			}
		})
	}
}

// BenchmarkConvert benchmarks a full page job against the fake engine.
func BenchmarkConvert(b *testing.B) {
	counts := []int{1, 10, 100}

	for _, n := range counts {
		b.Run(fmt.Sprintf("formulas_%d", n), func(b *testing.B) {
			conv := NewConverter(
				WithEngine(&fakeEngine{}),
				WithRegistry(NewRegistry()),
				WithLogger(NewLogger(nil)),
			)
			defer conv.Close()

			in := Input{HTML: inlineTeX(n), Page: &PageOptions{Output: OutputMML}}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := conv.Convert(context.Background(), in); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
