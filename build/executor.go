// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"fmt"
	"hash"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/pipeline"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
)

// ArtifactFileExtension is the extension of built artifact files.
const ArtifactFileExtension = "bf"

// messageQueue is an unbounded multi-producer queue drained by the
// coordinator. Backpressure is the coordinator's drain rate.
type messageQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *messageQueue[T]) push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

func (q *messageQueue[T]) drain() []T {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

func (q *messageQueue[T]) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// queuedJob is one job waiting to enter the graph.
type queuedJob struct {
	jobId        JobId
	jobType      JobTypeId
	inputData    []byte
	dependencies JobEnumeratedDependencies
	debugName    string
}

// completedJob is a worker's result.
type completedJob struct {
	jobId      JobId
	outputData []byte
	err        error
}

// jobState tracks one job through the current build cycle.
type jobState struct {
	jobType      JobTypeId
	dependencies JobEnumeratedDependencies
	inputData    []byte
	debugName    string

	scheduled bool
	completed bool
	failed    bool
	output    []byte
}

// jobAPIImpl is the executor's side of the JobAPI contract. Its methods are
// called from worker goroutines; everything it touches is queue- or
// lock-protected.
type jobAPIImpl struct {
	fs                afero.Fs
	buildDataRootPath string
	registry          *JobProcessorRegistry
	importProvider    ImportDataProvider
	schemaSet         *schema.Set

	jobCreateQueue       *messageQueue[queuedJob]
	artifactHandleQueue  *messageQueue[AssetArtifactIdPair]
	writtenArtifactQueue *messageQueue[WrittenArtifact]
}

func (a *jobAPIImpl) EnqueueJob(requestor JobRequestor, dataSet *datamodel.DataSet, schemaSet *schema.Set, job NewJob, debugName string, log *BuildLog) (JobId, error) {
	processor, ok := a.registry.get(job.JobType)
	if !ok {
		return JobId{}, fmt.Errorf("%w: job type %s", ErrJobProcessorNotFound, job.JobType)
	}
	dependencies, err := processor.enumerateDependencies(job.JobId, requestor, job.InputData, dataSet, schemaSet, log)
	if err != nil {
		return JobId{}, err
	}
	a.jobCreateQueue.push(queuedJob{
		jobId:        job.JobId,
		jobType:      job.JobType,
		inputData:    job.InputData,
		dependencies: dependencies,
		debugName:    debugName,
	})
	return job.JobId, nil
}

func (a *jobAPIImpl) ArtifactHandleCreated(assetId datamodel.AssetId, artifactId ArtifactId) {
	a.artifactHandleQueue.push(AssetArtifactIdPair{AssetId: assetId, ArtifactId: artifactId})
}

// ProduceArtifact hashes the artifact, writes the .bf file (header then
// payload) and reports the written artifact to the coordinator.
func (a *jobAPIImpl) ProduceArtifact(artifact BuiltArtifact) error {
	buildHash := utils.WithHasher64(func(h hash.Hash64) {
		artifact.Metadata.HashInto(h)
		utils.HashByte(h, utils.HASH_PIPE)
		_, _ = h.Write(artifact.Data)
	})

	path := utils.UUIDAndHashToPath(a.buildDataRootPath, artifact.ArtifactId.UUID(), buildHash, ArtifactFileExtension)
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	file, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact %s: %w", artifact.ArtifactId, err)
	}
	if err := artifact.Metadata.WriteHeader(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing artifact %s: %w", artifact.ArtifactId, err)
	}
	if _, err := file.Write(artifact.Data); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing artifact %s: %w", artifact.ArtifactId, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing artifact %s: %w", artifact.ArtifactId, err)
	}

	a.writtenArtifactQueue.push(WrittenArtifact{
		AssetId:              artifact.AssetId,
		ArtifactId:           artifact.ArtifactId,
		Metadata:             artifact.Metadata,
		BuildHash:            buildHash,
		ArtifactKeyDebugName: artifact.ArtifactKeyDebugName,
	})
	return nil
}

func (a *jobAPIImpl) FetchImportData(id datamodel.AssetId) (*pipeline.ImportData, error) {
	return a.importProvider.LoadImportData(a.schemaSet, id)
}

// JobExecutor owns the job graph for one build cycle: a single coordinator
// drains the queues and dispatches ready jobs to a bounded worker pool.
type JobExecutor struct {
	registry  *JobProcessorRegistry
	schemaSet *schema.Set
	api       *jobAPIImpl

	currentJobs    map[JobId]*jobState
	completedQueue *messageQueue[completedJob]
	completedCount int

	workerSlots   chan struct{}
	activeWorkers atomic.Int64
}

// NewJobExecutor creates an executor writing artifacts under
// buildDataRootPath with a worker pool sized to the CPU count.
func NewJobExecutor(
	fs afero.Fs,
	schemaSet *schema.Set,
	registry *JobProcessorRegistry,
	importProvider ImportDataProvider,
	buildDataRootPath string,
) *JobExecutor {
	api := &jobAPIImpl{
		fs:                   fs,
		buildDataRootPath:    buildDataRootPath,
		registry:             registry,
		importProvider:       importProvider,
		schemaSet:            schemaSet,
		jobCreateQueue:       &messageQueue[queuedJob]{},
		artifactHandleQueue:  &messageQueue[AssetArtifactIdPair]{},
		writtenArtifactQueue: &messageQueue[WrittenArtifact]{},
	}
	return &JobExecutor{
		registry:       registry,
		schemaSet:      schemaSet,
		api:            api,
		currentJobs:    make(map[JobId]*jobState),
		completedQueue: &messageQueue[completedJob]{},
		workerSlots:    make(chan struct{}, runtime.NumCPU()),
	}
}

// JobAPI exposes the executor's side channel to builders and jobs.
func (e *JobExecutor) JobAPI() JobAPI {
	return e.api
}

func (e *JobExecutor) handleCreateQueue() {
	for _, queued := range e.api.jobCreateQueue.drain() {
		// an existing key means a job with these exact inputs already ran or
		// is running; requesters share its output
		if _, exists := e.currentJobs[queued.jobId]; exists {
			continue
		}
		e.currentJobs[queued.jobId] = &jobState{
			jobType:      queued.jobType,
			dependencies: queued.dependencies,
			inputData:    queued.inputData,
			debugName:    queued.debugName,
		}
	}
}

func (e *JobExecutor) handleCompletedQueue(log *BuildLog) {
	for _, completed := range e.completedQueue.drain() {
		state, ok := e.currentJobs[completed.jobId]
		if !ok {
			// executor was stopped while this job was in flight
			continue
		}
		e.completedCount++
		if completed.err != nil {
			state.failed = true
			state.completed = true
			log.FatalJob(completed.jobId, fmt.Sprintf("%s failed: %s", state.debugName, completed.err))
			continue
		}
		state.completed = true
		state.output = completed.outputData
	}
}

// Update pumps the executor once: admit new jobs, dispatch every job whose
// upstream outputs exist, and absorb finished work. Call repeatedly until
// IsIdle. The job graph is not checked for cycles: a job that depends on
// itself, directly or through other jobs, never becomes ready, so the
// executor never goes idle.
func (e *JobExecutor) Update(dataSet *datamodel.DataSet, log *BuildLog) {
	e.handleCreateQueue()

	for jobId, state := range e.currentJobs {
		if state.scheduled {
			continue
		}

		ready := true
		for _, upstream := range state.dependencies.UpstreamJobs {
			dependency, exists := e.currentJobs[upstream]
			if !exists {
				// the upstream job was never created; this job can never run
				state.scheduled = true
				state.completed = true
				state.failed = true
				log.FatalJob(jobId, fmt.Sprintf("%s depends on job %s which was never created", state.debugName, upstream))
				ready = false
				break
			}
			if !dependency.completed || dependency.failed {
				if dependency.failed {
					state.scheduled = true
					state.completed = true
					state.failed = true
					log.FatalJob(jobId, fmt.Sprintf("%s depends on failed job %s", state.debugName, upstream))
				}
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		state.scheduled = true
		e.dispatch(jobId, state, dataSet, log)
	}

	e.handleCompletedQueue(log)
}

func (e *JobExecutor) dispatch(jobId JobId, state *jobState, dataSet *datamodel.DataSet, log *BuildLog) {
	processor, ok := e.registry.get(state.jobType)
	if !ok {
		e.completedQueue.push(completedJob{jobId: jobId, err: ErrJobProcessorNotFound})
		return
	}
	inputData := state.inputData
	e.activeWorkers.Add(1)
	go func() {
		e.workerSlots <- struct{}{}
		defer func() {
			<-e.workerSlots
			e.activeWorkers.Add(-1)
		}()
		output, err := processor.run(jobId, inputData, dataSet, e.schemaSet, e.api, log)
		e.completedQueue.push(completedJob{jobId: jobId, outputData: output, err: err})
	}()
}

// TakeWrittenArtifacts drains artifacts written since the last call,
// recording the artifact→asset ownership lookup. Seeing one artifact id
// claimed by two different assets is a hard error.
func (e *JobExecutor) TakeWrittenArtifacts(lookup map[ArtifactId]datamodel.AssetId) ([]WrittenArtifact, error) {
	written := e.api.writtenArtifactQueue.drain()
	for _, artifact := range written {
		if owner, seen := lookup[artifact.ArtifactId]; seen && owner != artifact.AssetId {
			return nil, fmt.Errorf("artifact %s claimed by assets %s and %s", artifact.ArtifactId, owner, artifact.AssetId)
		}
		lookup[artifact.ArtifactId] = artifact.AssetId
	}
	// handles drain after written artifacts so ownership is known before a
	// referencing artifact is processed
	for _, pair := range e.api.artifactHandleQueue.drain() {
		if owner, seen := lookup[pair.ArtifactId]; seen && owner != pair.AssetId {
			return nil, fmt.Errorf("artifact %s claimed by assets %s and %s", pair.ArtifactId, owner, pair.AssetId)
		}
		lookup[pair.ArtifactId] = pair.AssetId
	}
	return written, nil
}

// IsIdle reports whether every queue is empty, no worker is in flight, and
// every admitted job finished.
func (e *JobExecutor) IsIdle() bool {
	if !e.api.jobCreateQueue.empty() {
		return false
	}
	if !e.completedQueue.empty() {
		return false
	}
	if !e.api.writtenArtifactQueue.empty() {
		return false
	}
	if e.activeWorkers.Load() != 0 {
		return false
	}
	for _, state := range e.currentJobs {
		if !state.completed {
			return false
		}
	}
	return true
}

// CurrentJobCount is the number of jobs admitted this cycle.
func (e *JobExecutor) CurrentJobCount() int {
	return len(e.currentJobs)
}

// CompletedJobCount is the number of jobs finished this cycle.
func (e *JobExecutor) CompletedJobCount() int {
	return e.completedCount
}

// Reset clears the graph for a new build cycle.
func (e *JobExecutor) Reset() {
	e.Stop()
	e.completedCount = 0
}

// Stop discards pending and in-flight job state. Results from workers still
// running are dropped when they land.
func (e *JobExecutor) Stop() {
	e.api.jobCreateQueue.drain()
	e.completedQueue.drain()
	e.currentJobs = make(map[JobId]*jobState)
}
