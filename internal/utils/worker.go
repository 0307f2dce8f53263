package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

type WorkerFunction[T any] func(t *tomb.Tomb, task T) error

// WorkerPool fans queued tasks out to a fixed set of workers running under
// a tomb. A worker error is fatal to the whole tomb.
type WorkerPool[T any] struct {
	n     int    // number of workers
	tasks chan T // queued tasks
}

func NewWorkerPool[T any](size int) *WorkerPool[T] {
	return &WorkerPool[T]{
		tasks: make(chan T, taskChanSize),
		n:     size,
	}
}

// Setup spawns the pool's workers under the tomb.
func (pool *WorkerPool[T]) Setup(t *tomb.Tomb, work WorkerFunction[T]) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for range pool.n {
		t.Go(func() error {
			return pool.worker(t, work)
		})
	}
}

// Workers wait on tasks in the task channel and action them.
func (pool *WorkerPool[T]) worker(t *tomb.Tomb, work WorkerFunction[T]) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}

// AddTask queues a task for the next free worker.
func (pool *WorkerPool[T]) AddTask(task T) {
	pool.tasks <- task
}
