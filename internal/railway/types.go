package railway

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlesvien/game-nite/internal/games"
)

// DeploymentStatus is the latest deployment status Railway reports for a
// service. Values outside the known set are kept verbatim.
type DeploymentStatus string

const (
	StatusSuccess      DeploymentStatus = "SUCCESS"
	StatusBuilding     DeploymentStatus = "BUILDING"
	StatusDeploying    DeploymentStatus = "DEPLOYING"
	StatusInitializing DeploymentStatus = "INITIALIZING"
	StatusCrashed      DeploymentStatus = "CRASHED"
	StatusFailed       DeploymentStatus = "FAILED"
	StatusRemoved      DeploymentStatus = "REMOVED"
)

func (s DeploymentStatus) normalized() DeploymentStatus {
	return DeploymentStatus(strings.ToUpper(string(s)))
}

// Transitional reports whether the service is still coming up.
func (s DeploymentStatus) Transitional() bool {
	switch s.normalized() {
	case StatusBuilding, StatusDeploying, StatusInitializing:
		return true
	}
	return false
}

// StatusDisplay is the label and color class a status renders as.
type StatusDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Display renders the status. While transitional the label carries the time
// since the status last changed.
func (s DeploymentStatus) Display(now time.Time, updatedAt *time.Time) StatusDisplay {
	if s == "" {
		return StatusDisplay{Label: "Unknown", Color: "bg-gray-500"}
	}
	if s.Transitional() {
		var elapsed time.Duration
		if updatedAt != nil {
			elapsed = now.Sub(*updatedAt)
		}
		return StatusDisplay{Label: "Deploying " + Elapsed(elapsed), Color: "bg-yellow-500"}
	}
	switch s.normalized() {
	case StatusSuccess:
		return StatusDisplay{Label: "Online", Color: "bg-green-500"}
	case StatusCrashed, StatusFailed:
		return StatusDisplay{Label: "Crashed", Color: "bg-red-500"}
	case StatusRemoved:
		return StatusDisplay{Label: "Removed", Color: "bg-gray-500"}
	default:
		return StatusDisplay{Label: string(s), Color: "bg-blue-500"}
	}
}

// Elapsed formats a duration as "(m:ss)". Negative durations clamp to zero.
func Elapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("(%d:%02d)", secs/60, secs%60)
}

// Service is a deployed game server as Railway reports it.
type Service struct {
	ID              string
	Name            string
	ProjectID       string
	ProjectName     string
	EnvironmentID   string
	Source          games.Source
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	Status          DeploymentStatus
	StatusUpdatedAt *time.Time
}

type TCPProxy struct {
	Domain    string `json:"domain"`
	ProxyPort int    `json:"proxyPort"`
	ServiceID string `json:"serviceId"`
}

// WorkflowStatus is the state of an asynchronous template deployment.
type WorkflowStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Terminal reports whether polling can stop.
func (w WorkflowStatus) Terminal() bool {
	if w.Error != "" {
		return true
	}
	switch strings.ToLower(w.Status) {
	case "complete", "completed", "success", "error", "failed":
		return true
	}
	return false
}

// Failed reports whether the workflow ended unsuccessfully.
func (w WorkflowStatus) Failed() bool {
	if w.Error != "" {
		return true
	}
	switch strings.ToLower(w.Status) {
	case "error", "failed":
		return true
	}
	return false
}

// DeployTemplateOptions describes a single template deployment.
type DeployTemplateOptions struct {
	ServiceName             string
	Source                  games.Source
	TCPProxyApplicationPort int
	Variables               map[string]string
	VolumeMountPath         string
}

// CreateServiceOptions describes a service built step by step instead of
// through a template deployment.
type CreateServiceOptions struct {
	Name                    string
	Source                  games.Source
	Variables               map[string]string
	TCPProxyApplicationPort int
	VolumeMountPath         string
}
