// Package metrics writes metric documents in the CloudWatch Embedded Metric
// Format. A document is one JSON line, so the same stream can be read by a
// log shipper or simply kept next to the logs.
//
// Nothing is written until Configure installs a writer.
//
// Format: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Namespace groups every GourmetLens metric.
const Namespace = "GourmetLens"

// Units understood by EMF consumers.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
)

// Sink serializes flushed documents onto one writer. Writes are line-atomic.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	service string
}

// NewSink returns a sink writing to w. Documents carry a Service dimension
// when service is non-empty. A nil w discards.
func NewSink(w io.Writer, service string) *Sink {
	if w == nil {
		w = io.Discard
	}
	return &Sink{w: w, service: service}
}

var defaultSink = NewSink(io.Discard, "")

// Configure replaces the process-wide sink used by New.
func Configure(w io.Writer, service string) {
	s := NewSink(w, service)
	defaultSink.mu.Lock()
	defaultSink.w, defaultSink.service = s.w, s.service
	defaultSink.mu.Unlock()
}

func (s *Sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(append(line, '\n'))
}

// Recorder collects one document. Not safe for concurrent use; build one
// per event.
type Recorder struct {
	sink       *Sink
	namespace  string
	dimensions map[string]string
	units      map[string]string
	values     map[string]float64
	properties map[string]any
}

// New starts a document on the process-wide sink.
func New(namespace string) *Recorder {
	return defaultSink.New(namespace)
}

// New starts a document on s.
func (s *Sink) New(namespace string) *Recorder {
	s.mu.Lock()
	svc := s.service
	s.mu.Unlock()

	r := &Recorder{
		sink:       s,
		namespace:  namespace,
		dimensions: map[string]string{},
		units:      map[string]string{},
		values:     map[string]float64{},
		properties: map[string]any{},
	}
	if svc != "" {
		r.dimensions["Service"] = svc
	}
	return r
}

// Dimension adds a filterable attribute.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records value under name with one of the Unit constants.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.units[name] = unit
	r.values[name] = value
	return r
}

// Count records a single occurrence.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a searchable field that is not a metric.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type metricDirective struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

type awsMetadata struct {
	Timestamp         int64             `json:"Timestamp"`
	CloudWatchMetrics []metricDirective `json:"CloudWatchMetrics"`
}

// Flush writes the document. A recorder without metrics writes nothing.
// Dimension and metric order is sorted so documents compare byte for byte.
func (r *Recorder) Flush() {
	if len(r.values) == 0 {
		return
	}

	names := slices.Sorted(maps.Keys(r.values))
	defs := make([]metricDef, 0, len(names))
	for _, n := range names {
		defs = append(defs, metricDef{Name: n, Unit: r.units[n]})
	}

	doc := make(map[string]any, len(r.properties)+len(r.dimensions)+len(r.values)+1)
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = awsMetadata{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []metricDirective{{
			Namespace:  r.namespace,
			Dimensions: [][]string{slices.Sorted(maps.Keys(r.dimensions))},
			Metrics:    defs,
		}},
	}

	line, err := json.Marshal(doc)
	if err != nil {
		log.Warn().Err(err).Str("namespace", r.namespace).Msg("Dropping metric document")
		return
	}
	r.sink.write(line)
}

// RemoteCall records the latency and outcome of one call to a hosted model:
// <operation>LatencyMs and <operation>Calls, split by Operation and Result.
func RemoteCall(operation, model string, elapsed time.Duration, result string) {
	New(Namespace).
		Dimension("Operation", operation).
		Dimension("Result", result).
		Metric(operation+"LatencyMs", float64(elapsed.Milliseconds()), UnitMilliseconds).
		Count(operation+"Calls").
		Property("model", model).
		Flush()
}
