package protocol

// SUBSCRIBE (client -> server). First message on the observer connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// IncludeLocked adds locked activities to every status message.
	IncludeLocked bool `json:"include_locked,omitempty"`
}

// STATUS (server -> client). Sent after every long tick.
type StatusMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Lifetime string `json:"lifetime"`
	Mode     string `json:"mode"`
	Tick     uint64 `json:"tick"`
	LongTick uint64 `json:"long_tick"`
	Paused   bool   `json:"paused"`
	Dead     bool   `json:"dead"`

	OpenApprenticeships      int      `json:"open_apprenticeships"`
	CompletedApprenticeships []string `json:"completed_apprenticeships"`
	OddJobDays               int      `json:"odd_job_days"`
	BeggingDays              int      `json:"begging_days"`

	Activities     []ActivityState  `json:"activities"`
	Loop           []LoopEntryState `json:"loop"`
	LoopIndex      int              `json:"loop_index"`
	SpiritActivity string           `json:"spirit_activity,omitempty"`

	Money float64 `json:"money"`
}

type ActivityState struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Levels   int    `json:"levels"`
	Unlocked bool   `json:"unlocked"`
}

type LoopEntryState struct {
	Activity    string `json:"activity"`
	RepeatTimes int    `json:"repeat_times"`
}

// HTTP response for GET /v1/status.
type BootstrapResponse struct {
	ProtocolVersion string    `json:"protocol_version"`
	CatalogDigest   string    `json:"catalog_digest"`
	TickRateHz      int       `json:"tick_rate_hz"`
	LongTickEvery   int       `json:"long_tick_every"`
	Status          StatusMsg `json:"status"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
