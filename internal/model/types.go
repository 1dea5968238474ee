// Package model defines shared data structures.
package model

// Subject identifies a trainable item such as a visualization image.
type Subject string

// DefaultSubjects is the built-in set of image subjects.
var DefaultSubjects = []Subject{"image1", "image2", "image3", "image4", "image5"}

// Config defines practice settings.
type Config struct {
	Subject     Subject
	Minutes     int
	Subjects    []Subject
	Random      bool
	LeastFactor float64
	Mastery     int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Subject Subject
	Format  string
	Plain   bool
	Mastery int
}

// SessionConfig is fixed for the lifetime of a session.
type SessionConfig struct {
	Subject         Subject
	DurationSeconds int
}

// DurationMinutes rounds the configured duration to the nearest minute, halves up.
func (c SessionConfig) DurationMinutes() int {
	return (c.DurationSeconds + 30) / 60
}

// Phase is the lifecycle position of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// SessionState is a snapshot of a single training session.
type SessionState struct {
	ID                   string
	Subject              Subject
	DurationSeconds      int
	RemainingSeconds     int
	CurrentStreakSeconds int
	BestStreakSeconds    int
	Phase                Phase
}

// Elapsed returns the number of seconds ticked so far.
func (s SessionState) Elapsed() int {
	return s.DurationSeconds - s.RemainingSeconds
}

// Progress returns the elapsed fraction in [0, 1].
func (s SessionState) Progress() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return float64(s.Elapsed()) / float64(s.DurationSeconds)
}

// SessionResult is the statistics delta produced by a finished session.
type SessionResult struct {
	Subject           Subject
	DurationMinutes   int
	BestStreakSeconds int
}

// StatsRecord holds cumulative statistics for one subject.
type StatsRecord struct {
	Practices    int `json:"practices" yaml:"practices"`
	TotalMinutes int `json:"totalMinutes" yaml:"totalMinutes"`
	HighScore    int `json:"highScore" yaml:"highScore"`
}

// Merge folds one finished session into the record. HighScore never decreases.
func (r StatsRecord) Merge(durationMinutes, bestStreakSeconds int) StatsRecord {
	r.Practices++
	r.TotalMinutes += durationMinutes
	if bestStreakSeconds > r.HighScore {
		r.HighScore = bestStreakSeconds
	}
	return r
}

// Mastered reports whether the high score reached the given threshold in seconds.
func (r StatsRecord) Mastered(threshold int) bool {
	return threshold > 0 && r.HighScore >= threshold
}
