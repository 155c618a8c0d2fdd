package domain

// GlobalStats are aggregate records across all of a user's habits. They are
// computed by the remote service; the client only republishes them.
type GlobalStats struct {
	TotalCreated    int `json:"totalHabitosCriados"`
	TotalCompleted  int `json:"totalHabitosConcluidos"`
	TotalStreakDays int `json:"diasTotaisEmSequencia"`
	GlobalMaxStreak int `json:"maiorSequenciaGlobal"`
}

func (s *GlobalStats) Clone() *GlobalStats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Counters are the monotonic per-user totals kept by the reference service.
type Counters struct {
	UserID         string `db:"user_id"`
	TotalCreated   int    `db:"total_created"`
	TotalCompleted int    `db:"total_completed"`
	MaxStreak      int    `db:"max_streak"`
}
