package pipeline

import (
	"math/rand/v2"
	"time"
)

// Task identifies a pipeline task.
type Task string

const (
	TaskProcess Task = "process"
	TaskParse   Task = "parse"
	TaskAnalyze Task = "analyze"
)

// ParseTask maps a queue task name onto a Task.
func ParseTask(raw string) (Task, bool) {
	switch Task(raw) {
	case TaskProcess, TaskParse, TaskAnalyze:
		return Task(raw), true
	default:
		return "", false
	}
}

// Policy describes how a task is retried. Delays double from BaseDelay and
// never exceed MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// PolicyFor returns the default policy of a task.
func PolicyFor(task Task) Policy {
	p := Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: 300 * time.Second}
	if task == TaskProcess {
		p.MaxDelay = 600 * time.Second
	}
	return p
}

// Backoff returns the wait before retry number retry (1-based). With Jitter the
// delay is drawn uniformly from [0, delay].
func (p Policy) Backoff(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter {
		d = time.Duration(rand.Int64N(int64(d) + 1))
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
