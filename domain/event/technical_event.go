package event

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	QueueCapacityType       Type = "QUEUE_CAPACITY"
	ProcessStatsType        Type = "PROCESS_STATS"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
	JobPanickedType         Type = "JOB_PANICKED"
)

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

// QueueCapacity is a sample of one queue. Capacity 0 means unbounded.
type QueueCapacity struct {
	QueueName string
	Capacity  int
	Length    int
}

type ProcessStats struct {
	PID        int32
	Threads    int32
	Cpu        float64
	RSS        uint64
	Goroutines int
}

type CensorshipHit struct {
	Author string
	Words  []string
	Lang   string // ISO 639-1, empty when unknown
}

type JobPanicked struct {
	WorkerID int
	Reason   string
}
