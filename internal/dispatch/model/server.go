package model

import "time"

// Server status values derived from heartbeat age.
const (
	ServerStatusNormal   = "normal"
	ServerStatusAbnormal = "abnormal"
)

// JudgeServer is a remote sandbox host tracked by heartbeat.
type JudgeServer struct {
	ID            int64     `json:"id"`
	Hostname      string    `json:"hostname"`
	IP            string    `json:"ip"`
	JudgerVersion string    `json:"judger_version"`
	CPUCore       int       `json:"cpu_core"`
	MemoryUsage   float64   `json:"memory_usage"`
	CPUUsage      float64   `json:"cpu_usage"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	CreateTime    time.Time `json:"create_time"`
	TaskNumber    int       `json:"task_number"`
	ServiceURL    string    `json:"service_url"`
	IsDisabled    bool      `json:"is_disabled"`
}

// Status reports normal when the last heartbeat is within tolerance of now.
func (s *JudgeServer) Status(now time.Time, tolerance time.Duration) string {
	if now.Sub(s.LastHeartbeat) <= tolerance {
		return ServerStatusNormal
	}
	return ServerStatusAbnormal
}

// HeartbeatReport is what a judge server sends periodically.
type HeartbeatReport struct {
	Hostname      string  `json:"hostname"`
	JudgerVersion string  `json:"judger_version"`
	CPUCore       int     `json:"cpu_core"`
	Memory        float64 `json:"memory"`
	CPU           float64 `json:"cpu"`
	ServiceURL    string  `json:"service_url"`
	Action        string  `json:"action"`
	IP            string  `json:"-"`
}
