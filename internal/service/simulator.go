package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"barn_climate/internal/logger"
	"barn_climate/internal/models"
)

// ----------- Simulation constants -----------
const (
	OutdoorC            = 18.0 // temperature the barn drifts toward °C
	DriftCPerSec        = 0.02 // °C per second toward outdoor when heater is off
	HeaterRiseCPerSec   = 0.06 // °C per second when heater is on
	FanCoolCPerSec      = 0.03 // °C per second when fan is on
	HumidityRisePerSec  = 0.05 // % per second from the animals
	FanDryPerSec        = 0.12 // % per second when fan is on
	AmmoniaBuildPerSec  = 0.04 // ppm per second from litter
	WindowVentPPMPerSec = 0.15 // ppm per second when window is open
	NoiseAmplitude      = 0.2  // max jitter added to each reading
)

// barnState is the simulated climate plus the device states the rules drive.
type barnState struct {
	Temperature float64
	Humidity    float64
	Ammonia     float64
	WindowOpen  bool
	FanOn       bool
	HeaterOn    bool
	UpdatedAt   time.Time
}

func (b barnState) snapshot() models.SensorSnapshot {
	return models.SensorSnapshot{
		Temperature: b.Temperature,
		Humidity:    b.Humidity,
		Ammonia:     b.Ammonia,
	}
}

// SimulatorService stands in for the barn controller board: it evolves a
// climate model, feeds each reading through the ingest pipeline and applies
// the commands that come back.
type SimulatorService struct {
	ingest Ingest
	log    *logger.Logger
	noise  func() float64

	mu    sync.Mutex
	state barnState
}

// NewSimulatorService returns a simulator starting from a mild barn climate.
func NewSimulatorService(ingest Ingest, log *logger.Logger) *SimulatorService {
	return &SimulatorService{
		ingest: ingest,
		log:    logger.OrNop(log),
		noise:  func() float64 { return (rand.Float64()*2 - 1) * NoiseAmplitude },
		state: barnState{
			Temperature: 22,
			Humidity:    55,
			Ammonia:     8,
			UpdatedAt:   time.Now().UTC(),
		},
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick advances the model to now and ingests the resulting reading. Ticks
// less than a second apart are skipped; ok reports whether a reading was sent.
func (s *SimulatorService) Tick(ctx context.Context, now time.Time) (res IngestResult, ok bool) {
	s.mu.Lock()
	elapsed := now.Sub(s.state.UpdatedAt).Seconds()
	if elapsed < 1 {
		s.mu.Unlock()
		return IngestResult{}, false
	}
	s.advance(&s.state, elapsed)
	s.state.UpdatedAt = now.UTC()
	snap := s.state.snapshot()
	s.mu.Unlock()

	snap.Temperature += s.noise()
	snap.Humidity = clamp(snap.Humidity+s.noise(), 0, 100)
	snap.Ammonia = maxFloat(snap.Ammonia+s.noise(), 0)

	s.log.Debugw("simulated_reading",
		"temperature", snap.Temperature,
		"humidity", snap.Humidity,
		"ammonia", snap.Ammonia,
	)
	res = s.ingest.Handle(ctx, snap)

	s.mu.Lock()
	s.applyActions(&s.state, res.Actions)
	s.mu.Unlock()
	return res, true
}

// advance moves every reading by elapsed seconds of the current device states.
func (s *SimulatorService) advance(st *barnState, elapsed float64) {
	s.handleTemperature(st, elapsed)
	s.handleHumidity(st, elapsed)
	s.handleAmmonia(st, elapsed)
}

func (s *SimulatorService) handleTemperature(st *barnState, elapsed float64) {
	if st.HeaterOn {
		st.Temperature += HeaterRiseCPerSec * elapsed
	} else if st.Temperature > OutdoorC {
		st.Temperature = maxFloat(st.Temperature-DriftCPerSec*elapsed, OutdoorC)
	} else {
		st.Temperature = minFloat(st.Temperature+DriftCPerSec*elapsed, OutdoorC)
	}
	if st.FanOn {
		st.Temperature -= FanCoolCPerSec * elapsed
	}
}

func (s *SimulatorService) handleHumidity(st *barnState, elapsed float64) {
	rate := HumidityRisePerSec
	if st.FanOn {
		rate -= FanDryPerSec
	}
	st.Humidity = clamp(st.Humidity+rate*elapsed, 0, 100)
}

func (s *SimulatorService) handleAmmonia(st *barnState, elapsed float64) {
	rate := AmmoniaBuildPerSec
	if st.WindowOpen {
		rate -= WindowVentPPMPerSec
	}
	st.Ammonia = maxFloat(st.Ammonia+rate*elapsed, 0)
}

// applyActions switches the simulated devices the way the board would.
func (s *SimulatorService) applyActions(st *barnState, actions []models.Action) {
	for _, a := range actions {
		switch a {
		case models.ActionOpenWindow:
			st.WindowOpen = true
		case models.ActionCloseWindow:
			st.WindowOpen = false
		case models.ActionFanOn:
			st.FanOn = true
		case models.ActionFanOff:
			st.FanOn = false
		case models.ActionHeaterOn:
			st.HeaterOn = true
		case models.ActionHeaterOff:
			st.HeaterOn = false
		}
	}
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	return minFloat(maxFloat(v, lo), hi)
}
