package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	ScheduleTaskRepeated(interval time.Duration, task func()) error
}
