package lifecycle

import "time"

// Status is a reporting view of a State.
type Status struct {
	Instance    string          `json:"instance" yaml:"instance" toml:"instance"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at" toml:"started_at"`
	Uptime      string          `json:"uptime" yaml:"uptime" toml:"uptime"`
	UptimeSec   float64         `json:"uptime_sec" yaml:"uptime_sec" toml:"uptime_sec"`
	Phase       string          `json:"phase" yaml:"phase" toml:"phase"`
	Stopping    bool            `json:"stopping" yaml:"stopping" toml:"stopping"`
	Reloading   bool            `json:"reloading" yaml:"reloading" toml:"reloading"`
	LogLevel    string          `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	Subscribers int             `json:"subscribers" yaml:"subscribers" toml:"subscribers"`
	Counters    CounterSnapshot `json:"counters" yaml:"counters" toml:"counters"`
}

// Status reads the current state for reporting.
func (s *State) Status() Status {
	uptime := s.Uptime()
	outcome := s.Outcome()

	phase := "running"
	if outcome != OutcomeRunning {
		phase = "stopping"
	}

	st := Status{
		Instance:    s.id,
		StartedAt:   s.started.UTC(),
		Uptime:      uptime.Round(time.Second).String(),
		UptimeSec:   uptime.Seconds(),
		Phase:       phase,
		Stopping:    outcome != OutcomeRunning,
		Reloading:   outcome == OutcomeRestart,
		Subscribers: s.signal.Len(),
		Counters:    s.counters.Snapshot(),
	}
	if s.levels != nil {
		st.LogLevel = s.levels.Level()
	}
	return st
}
