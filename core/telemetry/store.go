package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

// DefaultCapacity is the number of samples kept per vehicle.
const DefaultCapacity = 10000

// Config defines telemetry store settings.
type Config struct {
	// Capacity bounds the history kept per vehicle. Oldest samples are
	// evicted first.
	Capacity int `json:"capacity"`
	// DropInvalid silently drops samples without a vehicle id instead of
	// rejecting them. Legacy producers rely on it.
	DropInvalid bool `json:"drop_invalid"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
}

// Observer is notified synchronously after a sample has been stored.
type Observer interface {
	OnSample(model.TelemetrySample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(model.TelemetrySample)

func (f ObserverFunc) OnSample(s model.TelemetrySample) { f(s) }

// Observers fans a sample out to several observers in order.
func Observers(obs ...Observer) Observer {
	return ObserverFunc(func(s model.TelemetrySample) {
		for _, o := range obs {
			if o != nil {
				o.OnSample(s)
			}
		}
	})
}

// VehicleStats summarises the history of one vehicle.
type VehicleStats struct {
	Count  int                   `json:"eventCount"`
	Latest model.TelemetrySample `json:"latestEvent"`
}

// Stats summarises the whole store.
type Stats struct {
	TotalVehicles int                     `json:"totalVehicles"`
	TotalEvents   int                     `json:"totalEvents"`
	Vehicles      map[string]VehicleStats `json:"vehicleStats"`
}

// Store keeps a bounded, append-only history of samples per vehicle.
// Writes to different vehicles proceed in parallel; writes to one vehicle
// are serialised by that vehicle's series lock.
type Store struct {
	cfg      Config
	observer Observer
	sink     metrics.Sink
	log      logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	series map[string]*series
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used for receipt timestamps and query
// defaults.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithSink records stored samples and evictions.
func WithSink(sink metrics.Sink) Option { return func(s *Store) { s.sink = sink } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.log = l } }

// NewStore creates a store. obs may be nil.
func NewStore(cfg Config, obs Observer, opts ...Option) *Store {
	cfg.SetDefaults()
	s := &Store{
		cfg:      cfg,
		observer: obs,
		sink:     metrics.NopSink{},
		log:      logger.Nop{},
		now:      time.Now,
		series:   make(map[string]*series),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Capacity returns the per-vehicle bound.
func (s *Store) Capacity() int { return s.cfg.Capacity }

// Record appends the sample to its vehicle's history and notifies the
// observer. A sample without vehicle id is a ValidationError, or is dropped
// with a nil error when DropInvalid is set.
func (s *Store) Record(sample model.TelemetrySample) error {
	_, err := s.record(sample)
	return err
}

func (s *Store) record(sample model.TelemetrySample) (bool, error) {
	if sample.VehicleID == "" {
		if !s.cfg.DropInvalid {
			return false, model.NewValidationError("sample without vehicle id")
		}
		s.log.Debugf("dropping sample without vehicle id")
		return false, nil
	}
	if sample.ReceivedAt.IsZero() {
		sample.ReceivedAt = s.now()
	}
	ser := s.seriesFor(sample.VehicleID)
	ser.mu.Lock()
	evicted := ser.push(sample)
	// The observer runs under the series lock so that alerts for one
	// vehicle are raised in the order its samples were stored.
	if s.observer != nil {
		s.observer.OnSample(sample)
	}
	ser.mu.Unlock()

	if evicted {
		if er, ok := s.sink.(metrics.EvictionRecorder); ok {
			if err := er.RecordEviction(sample.VehicleID); err != nil {
				s.log.Errorf("eviction metrics error: %v", err)
			}
		}
	}
	if err := s.sink.RecordSample(metrics.SampleEvent{
		VehicleID: sample.VehicleID,
		Speed:     sample.Speed,
		FuelLevel: sample.FuelLevel,
		Position:  sample.Position,
		Time:      sample.EffectiveTime(),
	}); err != nil {
		s.log.Errorf("sample metrics error: %v", err)
	}
	return true, nil
}

// RecordBatch records the samples in order and returns how many were
// processed. The batch is validated before any sample is stored, so a
// rejected batch leaves the store untouched. With DropInvalid set, dropped
// samples count as processed.
func (s *Store) RecordBatch(samples []model.TelemetrySample) (int, error) {
	if !s.cfg.DropInvalid {
		for i, sample := range samples {
			if sample.VehicleID == "" {
				return 0, model.NewValidationError("sample %d without vehicle id", i)
			}
		}
	}
	n := 0
	for _, sample := range samples {
		ok, err := s.record(sample)
		if err != nil {
			return n, err
		}
		if ok || s.cfg.DropInvalid {
			n++
		}
	}
	return n, nil
}

// Query returns the samples of vehicleID whose effective timestamp falls in
// [from, to], oldest first. A nil from means the Unix epoch and a nil to
// means now.
func (s *Store) Query(vehicleID string, from, to *time.Time) []model.TelemetrySample {
	lo := time.Unix(0, 0)
	if from != nil {
		lo = *from
	}
	hi := s.now()
	if to != nil {
		hi = *to
	}

	s.mu.RLock()
	ser, ok := s.series[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return []model.TelemetrySample{}
	}

	ser.mu.Lock()
	all := ser.snapshot()
	ser.mu.Unlock()

	out := make([]model.TelemetrySample, 0, len(all))
	for _, smp := range all {
		t := smp.EffectiveTime()
		if t.Before(lo) || t.After(hi) {
			continue
		}
		out = append(out, smp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveTime().Before(out[j].EffectiveTime())
	})
	return out
}

// Stats returns per-vehicle counts and the most recently stored sample.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	ids := make([]string, 0, len(s.series))
	sers := make([]*series, 0, len(s.series))
	for id, ser := range s.series {
		ids = append(ids, id)
		sers = append(sers, ser)
	}
	s.mu.RUnlock()

	st := Stats{Vehicles: make(map[string]VehicleStats, len(ids))}
	for i, ser := range sers {
		ser.mu.Lock()
		vs := VehicleStats{Count: ser.len()}
		if latest, ok := ser.last(); ok {
			vs.Latest = latest
		}
		ser.mu.Unlock()
		if vs.Count == 0 {
			continue
		}
		st.Vehicles[ids[i]] = vs
		st.TotalEvents += vs.Count
	}
	st.TotalVehicles = len(st.Vehicles)
	return st
}

func (s *Store) seriesFor(id string) *series {
	s.mu.RLock()
	ser, ok := s.series[id]
	s.mu.RUnlock()
	if ok {
		return ser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ser, ok = s.series[id]; ok {
		return ser
	}
	ser = newSeries(s.cfg.Capacity)
	s.series[id] = ser
	return ser
}
