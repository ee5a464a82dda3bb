package main

import "sync"

// job is a queued callback. abandon, when set, runs instead of run if
// the reactor stops before the job is picked up.
type job struct {
	run, abandon func()
}

// reactor runs posted callbacks on a fixed pool of workers. Workers
// stay alive while a guard is held or work is queued. A new reactor
// holds one guard until release is called.
type reactor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []job
	guards  int
	stopped bool
	wg      sync.WaitGroup

	release func()
}

func newReactor(workers int) *reactor {
	if workers < 1 {
		workers = 1
	}
	r := new(reactor)
	r.cond = sync.NewCond(&r.mu)
	r.release = r.hold()
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer r.wg.Done()
			r.run()
		}()
	}
	return r
}

func (r *reactor) run() {
	for {
		r.mu.Lock()
		for len(r.tasks) == 0 && !r.stopped && r.guards > 0 {
			r.cond.Wait()
		}
		if r.stopped || len(r.tasks) == 0 {
			r.mu.Unlock()
			return
		}
		next := r.tasks[0]
		r.tasks[0] = job{}
		r.tasks = r.tasks[1:]
		r.mu.Unlock()
		next.run()
	}
}

func (r *reactor) post(task func()) bool {
	return r.submit(task, nil)
}

func (r *reactor) submit(run, abandon func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.tasks = append(r.tasks, job{run: run, abandon: abandon})
	r.cond.Signal()
	return true
}

// hold keeps idle workers from exiting until the returned release is
// called.
func (r *reactor) hold() (release func()) {
	r.mu.Lock()
	r.guards++
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.guards--
			r.cond.Broadcast()
			r.mu.Unlock()
		})
	}
}

// stop joins the workers. Jobs still queued are not run; their abandon
// callbacks are called instead.
func (r *reactor) stop() {
	r.mu.Lock()
	r.stopped = true
	dropped := r.tasks
	r.tasks = nil
	r.cond.Broadcast()
	r.mu.Unlock()
	r.wg.Wait()
	for _, j := range dropped {
		if j.abandon != nil {
			j.abandon()
		}
	}
}

// strand serializes callbacks of one session on the shared reactor.
type strand struct {
	r       *reactor
	mu      sync.Mutex
	queue   []job
	running bool
}

func newStrand(r *reactor) *strand {
	return &strand{r: r}
}

func (s *strand) post(task func()) bool {
	return s.submit(task, nil)
}

// submit queues run behind the strand's earlier callbacks. If the
// reactor stops first, abandon is called instead.
func (s *strand) submit(run, abandon func()) bool {
	s.mu.Lock()
	s.queue = append(s.queue, job{run: run, abandon: abandon})
	if s.running {
		s.mu.Unlock()
		return true
	}
	s.running = true
	s.mu.Unlock()
	if !s.r.submit(s.drain, s.abandon) {
		s.mu.Lock()
		// queue[0] is ours; anything behind it was queued concurrently.
		rest := s.queue[1:]
		s.queue = nil
		s.running = false
		s.mu.Unlock()
		for _, j := range rest {
			if j.abandon != nil {
				j.abandon()
			}
		}
		return false
	}
	return true
}

func (s *strand) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next.run()
	}
}

// abandon gives up on every queued callback once the reactor dropped the
// strand's drain.
func (s *strand) abandon() {
	s.mu.Lock()
	queued := s.queue
	s.queue = nil
	s.running = false
	s.mu.Unlock()
	for _, j := range queued {
		if j.abandon != nil {
			j.abandon()
		}
	}
}
