package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueFull indica que a fila está cheia e a tarefa foi descartada
	ErrQueueFull = errors.New("fila cheia")
	// ErrQueueClosed indica que a fila já foi encerrada
	ErrQueueClosed = errors.New("fila encerrada")
)

// Job é o trabalho assíncrono executado por um worker
type Job func(ctx context.Context) error

// Task acompanha um Job enviado à fila.
// Done fecha quando o job termina (com sucesso, erro, panic ou descarte no encerramento).
type Task struct {
	Name string

	job  Job
	done chan struct{}
	err  error
}

// Done retorna um canal fechado quando a tarefa termina
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err retorna o erro da tarefa; só é válido depois de Done fechar
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait bloqueia até a tarefa terminar ou ctx ser cancelado
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Stats é um retrato dos contadores da fila
type Stats struct {
	Enqueued  int64
	Processed int64
	Succeeded int64
	Failed    int64
	Dropped   int64
	Panics    int64
}

type counters struct {
	enqueued  atomic.Int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// Queue é uma fila em memória com um pool fixo de workers
type Queue struct {
	logger  *slog.Logger
	workers int
	tasks   chan *Task

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	stats counters
}

// New cria a fila; workers e capacity valem no mínimo 1
func New(logger *slog.Logger, workers, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		tasks:   make(chan *Task, capacity),
	}
}

// Start inicia os workers, que rodam até Shutdown ou cancelamento de ctx
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker parado", "worker_id", id)
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.execute(ctx, task, id)
		}
	}
}

// execute roda o job com recuperação de panic; a tarefa sempre termina
func (q *Queue) execute(ctx context.Context, task *Task, workerID int) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			q.stats.panics.Add(1)
			q.stats.failed.Add(1)
			q.logger.Error("panic recuperado em tarefa",
				"worker_id", workerID,
				"task", task.Name,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic em %s: %v", task.Name, r)
		}
		q.stats.processed.Add(1)
		task.finish(err)
	}()

	err = task.job(ctx)
	if err != nil {
		q.stats.failed.Add(1)
		q.logger.Warn("tarefa falhou", "worker_id", workerID, "task", task.Name, "error", err)
		return
	}
	q.stats.succeeded.Add(1)
}

// Submit enfileira o job sem bloquear. Com a fila cheia devolve ErrQueueFull.
func (q *Queue) Submit(name string, job Job) (*Task, error) {
	if job == nil {
		return nil, errors.New("job nulo")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	task := &Task{Name: name, job: job, done: make(chan struct{})}
	select {
	case q.tasks <- task:
		q.stats.enqueued.Add(1)
		return task, nil
	default:
		q.stats.dropped.Add(1)
		q.logger.Warn("fila cheia, tarefa descartada", "task", name, "capacity", cap(q.tasks))
		return nil, ErrQueueFull
	}
}

// Shutdown para de aceitar tarefas e espera os workers até timeout.
// Tarefas que não chegaram a rodar terminam com ErrQueueClosed.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("encerramento da fila excedeu %s", timeout)
	}

	for task := range q.tasks {
		q.stats.dropped.Add(1)
		task.finish(ErrQueueClosed)
	}
	q.logger.Info("fila encerrada", "processed", q.stats.processed.Load())
	return nil
}

// Stats devolve um retrato dos contadores
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.stats.enqueued.Load(),
		Processed: q.stats.processed.Load(),
		Succeeded: q.stats.succeeded.Load(),
		Failed:    q.stats.failed.Load(),
		Dropped:   q.stats.dropped.Load(),
		Panics:    q.stats.panics.Load(),
	}
}

// Len retorna quantas tarefas aguardam um worker
func (q *Queue) Len() int {
	return len(q.tasks)
}
