// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
)

var (
	// ErrJobProcessorNotFound is returned when a job names an unregistered
	// processor type.
	ErrJobProcessorNotFound = errors.New("no job processor registered")
	// ErrJobInputDeserializationFailed is returned when a job's stored input
	// bytes no longer decode into the processor's input type.
	ErrJobInputDeserializationFailed = errors.New("job input failed to deserialize")
	// ErrDependencyNotBuilt is reported as a fatal build log event when a
	// written artifact references an artifact whose owning asset is unknown.
	ErrDependencyNotBuilt = errors.New("referenced artifact was never built")
)

// JobTypeId identifies a processor type; processors declare it as a fixed
// UUID so job identity survives restarts.
type JobTypeId uuid.UUID

func (id JobTypeId) String() string {
	return uuid.UUID(id).String()
}

// JobId identifies one job. Ids are content-addressed: the hash of the
// processor type and the job's canonical input bytes. Two enqueues with equal
// input are the same job.
type JobId uuid.UUID

func (id JobId) String() string {
	return uuid.UUID(id).String()
}

// Hex renders the id as 32 hex characters.
func (id JobId) Hex() string {
	return hex.EncodeToString(id[:])
}

func jobIdForInput(jobType JobTypeId, inputData []byte) JobId {
	return JobId(utils.WithHasher128(func(h hash.Hash) {
		_, _ = h.Write(jobType[:])
		utils.HashByte(h, utils.HASH_PIPE)
		_, _ = h.Write(inputData)
	}))
}

// JobRequestor says who asked for a job: a builder seeding from an asset, or
// another job.
type JobRequestor struct {
	AssetId datamodel.AssetId
	JobId   JobId
	FromJob bool
}

// BuilderRequestor attributes a job to its seed asset.
func BuilderRequestor(assetId datamodel.AssetId) JobRequestor {
	return JobRequestor{AssetId: assetId}
}

// JobRequestorFromJob attributes a job to its parent job.
func JobRequestorFromJob(jobId JobId) JobRequestor {
	return JobRequestor{JobId: jobId, FromJob: true}
}

// NewJob is the erased form of an enqueue request.
type NewJob struct {
	JobType   JobTypeId
	JobId     JobId
	InputData []byte
}

// JobEnumeratedDependencies lists the upstream jobs whose outputs must exist
// before a job may run.
type JobEnumeratedDependencies struct {
	UpstreamJobs []JobId
}

// EnumerateDependenciesContext is handed to processors during the dependency
// pass.
type EnumerateDependenciesContext[InputT any] struct {
	JobId     JobId
	Input     InputT
	DataSet   *datamodel.DataSet
	SchemaSet *schema.Set

	requestor JobRequestor
	log       *BuildLog
}

// Warn records a warning on the build log.
func (c *EnumerateDependenciesContext[InputT]) Warn(message string) {
	message = fmt.Sprintf("while enumerating dependencies for new job %s: %s", c.JobId, message)
	if c.requestor.FromJob {
		c.log.WarnJob(c.requestor.JobId, message)
	} else {
		c.log.WarnAsset(c.requestor.AssetId, message)
	}
}

// Error records an error on the build log.
func (c *EnumerateDependenciesContext[InputT]) Error(message string) {
	message = fmt.Sprintf("while enumerating dependencies for new job %s: %s", c.JobId, message)
	if c.requestor.FromJob {
		c.log.FatalJob(c.requestor.JobId, message)
	} else {
		c.log.FatalAsset(c.requestor.AssetId, message)
	}
}

// JobProcessor is a typed, versioned build step. InputT must serialize
// deterministically (a struct of plain data); OutputT must round-trip through
// serialization. Version is recorded with the registered processor; it does
// not feed the job id, and job results are not cached across build cycles.
type JobProcessor[InputT, OutputT any] interface {
	JobTypeId() JobTypeId
	Version() uint32
	EnumerateDependencies(ctx *EnumerateDependenciesContext[InputT]) (JobEnumeratedDependencies, error)
	Run(ctx *RunContext[InputT]) (OutputT, error)
}

// jobProcessorAbstract erases processor input/output types at the registry
// boundary; typed wrappers decode on entry and encode on exit.
type jobProcessorAbstract interface {
	version() uint32
	enumerateDependencies(jobId JobId, requestor JobRequestor, input []byte, dataSet *datamodel.DataSet, schemaSet *schema.Set, log *BuildLog) (JobEnumeratedDependencies, error)
	run(jobId JobId, input []byte, dataSet *datamodel.DataSet, schemaSet *schema.Set, api JobAPI, log *BuildLog) ([]byte, error)
}

type jobWrapper[InputT, OutputT any] struct {
	processor JobProcessor[InputT, OutputT]
}

func (w *jobWrapper[InputT, OutputT]) version() uint32 {
	return w.processor.Version()
}

func (w *jobWrapper[InputT, OutputT]) enumerateDependencies(jobId JobId, requestor JobRequestor, input []byte, dataSet *datamodel.DataSet, schemaSet *schema.Set, log *BuildLog) (JobEnumeratedDependencies, error) {
	var decoded InputT
	if err := json.Unmarshal(input, &decoded); err != nil {
		return JobEnumeratedDependencies{}, fmt.Errorf("%w: %v", ErrJobInputDeserializationFailed, err)
	}
	return w.processor.EnumerateDependencies(&EnumerateDependenciesContext[InputT]{
		JobId:     jobId,
		Input:     decoded,
		DataSet:   dataSet,
		SchemaSet: schemaSet,
		requestor: requestor,
		log:       log,
	})
}

func (w *jobWrapper[InputT, OutputT]) run(jobId JobId, input []byte, dataSet *datamodel.DataSet, schemaSet *schema.Set, api JobAPI, log *BuildLog) ([]byte, error) {
	var decoded InputT
	if err := json.Unmarshal(input, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJobInputDeserializationFailed, err)
	}
	ctx := &RunContext[InputT]{
		JobId:             jobId,
		Input:             decoded,
		DataSet:           dataSet,
		SchemaSet:         schemaSet,
		api:               api,
		log:               log,
		fetchedImportData: make(map[datamodel.AssetId]*datamodel.SingleObject),
	}
	output, err := w.processor.Run(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(output)
}

// JobProcessorRegistry holds every processor, keyed by job type id.
type JobProcessorRegistry struct {
	jobProcessors map[JobTypeId]jobProcessorAbstract
}

// NewJobProcessorRegistry creates an empty registry.
func NewJobProcessorRegistry() *JobProcessorRegistry {
	return &JobProcessorRegistry{jobProcessors: make(map[JobTypeId]jobProcessorAbstract)}
}

func (r *JobProcessorRegistry) get(jobType JobTypeId) (jobProcessorAbstract, bool) {
	processor, ok := r.jobProcessors[jobType]
	return processor, ok
}

// RegisterJobProcessor adds a processor to a registry. Registering two
// processors under one type id is a programming error.
func RegisterJobProcessor[InputT, OutputT any](r *JobProcessorRegistry, processor JobProcessor[InputT, OutputT]) error {
	id := processor.JobTypeId()
	if _, exists := r.jobProcessors[id]; exists {
		return datamodel.ErrDuplicateEntry
	}
	r.jobProcessors[id] = &jobWrapper[InputT, OutputT]{processor: processor}
	return nil
}

// EnqueueJob hashes and serializes a typed input, then hands the erased job
// to the executor. The returned id is the job's content-addressed identity.
func EnqueueJob[InputT, OutputT any](
	api JobAPI,
	requestor JobRequestor,
	dataSet *datamodel.DataSet,
	schemaSet *schema.Set,
	processor JobProcessor[InputT, OutputT],
	input InputT,
	log *BuildLog,
) (JobId, error) {
	inputData, err := json.Marshal(input)
	if err != nil {
		return JobId{}, fmt.Errorf("serializing job input: %w", err)
	}
	job := NewJob{
		JobType:   processor.JobTypeId(),
		JobId:     jobIdForInput(processor.JobTypeId(), inputData),
		InputData: inputData,
	}
	debugName := fmt.Sprintf("%T", processor)
	return api.EnqueueJob(requestor, dataSet, schemaSet, job, debugName, log)
}
