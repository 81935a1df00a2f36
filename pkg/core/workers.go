/*
 * Copyright 2026 Relayops, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import "sync"

const (
	defaultWorkers    = 8
	workerQueueFactor = 16
)

// workerPool runs storage-touching work handed off the session receive
// paths. Submit never blocks the caller: when every worker is busy and
// the queue is full, the task runs on a fresh goroutine instead.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = defaultWorkers
	}

	p := &workerPool{tasks: make(chan func(), size*workerQueueFactor)}

	for i := 0; i < size; i++ {
		p.wg.Add(1)

		go func() {
			defer p.wg.Done()

			for task := range p.tasks {
				task()
			}
		}()
	}

	return p
}

func (p *workerPool) Submit(task func()) {
	select {
	case p.tasks <- task:
	default:
		p.wg.Add(1)

		go func() {
			defer p.wg.Done()
			task()
		}()
	}
}

// Stop drains queued tasks and waits for in-flight ones to finish.
func (p *workerPool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}
