package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/aurora/engine/core"
)

// JobTask is one unit of background work. OnComplete and OnFailure
// run on the worker goroutine after OnStart returns.
type JobTask struct {
	OnStart    func() error
	OnComplete func()
	OnFailure  func(err error)
}

// JobSystem runs tasks on a fixed pool of worker goroutines over a
// shared task channel. The scene uses it for asynchronous entity
// construction and destruction batches.
type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.OnStart(); err != nil {
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnComplete != nil {
					job.OnComplete()
				}
			}
		}()
	}
}

// Shutdown drains the queue and waits for the workers to finish.
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

// Submit queues the job, blocking when the queue is full.
func (js *JobSystem) Submit(job JobTask) {
	js.jobQueue <- job
}

// AddWorkNonBlocking queues the job without blocking the caller.
func (js *JobSystem) AddWorkNonBlocking(job JobTask) {
	go js.Submit(job)
}

// SceneTaskRunner adapts the job system to the plain task interface
// the scene consumes.
type SceneTaskRunner struct {
	jobs *JobSystem
}

func NewSceneTaskRunner(jobs *JobSystem) *SceneTaskRunner {
	return &SceneTaskRunner{jobs: jobs}
}

func (r *SceneTaskRunner) Submit(work func()) {
	r.jobs.Submit(JobTask{
		OnStart: func() error {
			work()
			return nil
		},
	})
}
