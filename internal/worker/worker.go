package worker

import (
	"log/slog"
	"sync"
)

// Task 是交給背景 worker 執行的工作
type Task func()

// Pool 以固定數量的 goroutine 執行背景工作，例如發送 movement 事件
type Pool interface {
	// Submit 排入工作；Stop 之後呼叫回傳 false
	Submit(Task) bool
	// Stop 不再接受新工作，並等待佇列中的工作完成
	Stop()
}

// queueFactor 決定佇列長度 (worker 數量的倍數)
const queueFactor = 16

// NewPool 建立 n 個 worker；n <= 0 時使用 1
func NewPool(n int) Pool {
	if n <= 0 {
		n = 1
	}
	p := &pool{jobs: make(chan Task, n*queueFactor)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

type pool struct {
	mu      sync.RWMutex
	stopped bool
	jobs    chan Task
	wg      sync.WaitGroup
}

func (p *pool) loop() {
	defer p.wg.Done()
	for job := range p.jobs {
		run(job)
	}
}

// run 執行單一工作，panic 不會終止 worker
func run(job Task) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked", "panic", r)
		}
	}()
	job()
}

func (p *pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	p.jobs <- t
	return true
}

func (p *pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
