// Package actions is the boundary the web handlers and the CLI call. Every
// action checks for a signed-in caller, turns domain values into JSON-ready
// shapes and maps failures to messages a user can read.
package actions

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlesvien/game-nite/internal/apperr"
	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/railway"
)

const (
	UnauthorizedMessage = "You must be logged in to perform this action"

	msgEmptyName        = "Please enter a server name"
	msgGameNotFound     = "Game not found"
	msgTemplateNotFound = "Template not configured for this game"

	fallbackList     = "Failed to fetch servers"
	fallbackCreate   = "An unexpected error occurred"
	fallbackRestart  = "Failed to restart server"
	fallbackDelete   = "Failed to delete server"
	fallbackWorkflow = "Failed to fetch workflow status"
)

// Result is the outcome of an action. Error is set iff Success is false.
type Result[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data}
}

func okEmpty() Result[struct{}] {
	return Result[struct{}]{Success: true}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Success: false, Error: msg}
}

// Servers is the application service the actions drive. *servers.Service
// implements it.
type Servers interface {
	Catalog() *games.Catalog
	ListServers(ctx context.Context, gameID string) ([]railway.Service, error)
	DeployTemplate(ctx context.Context, game games.Game, name string, customEnv map[string]string) (string, error)
	CreateServer(ctx context.Context, game games.Game, name string, customEnv map[string]string) (*railway.Service, error)
	RestartServer(ctx context.Context, serviceID string) error
	DeleteServer(ctx context.Context, serviceID string) error
	GetWorkflowStatus(ctx context.Context, workflowID string) (railway.WorkflowStatus, error)
}

type Actions struct {
	servers Servers
	log     *logrus.Entry
	now     func() time.Time
}

func New(servers Servers, logger *logrus.Entry) *Actions {
	return &Actions{
		servers: servers,
		log:     logger.WithField("component", "actions"),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for status labels.
func (a *Actions) WithClock(now func() time.Time) *Actions {
	a.now = now
	return a
}

// SerializedService is a server as the UI and the CLI see it.
type SerializedService struct {
	ID               string                `json:"id" yaml:"id"`
	Name             string                `json:"name" yaml:"name"`
	ProjectID        string                `json:"projectId" yaml:"projectId"`
	ProjectName      string                `json:"projectName" yaml:"projectName"`
	CreatedAt        string                `json:"createdAt" yaml:"createdAt"`
	UpdatedAt        string                `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	DeploymentStatus string                `json:"deploymentStatus,omitempty" yaml:"deploymentStatus,omitempty"`
	StatusUpdatedAt  string                `json:"statusUpdatedAt,omitempty" yaml:"statusUpdatedAt,omitempty"`
	Source           *games.Source         `json:"source,omitempty" yaml:"source,omitempty"`
	Display          railway.StatusDisplay `json:"display" yaml:"display"`
}

func isoTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Serialize converts a service, rendering dates as ISO 8601 strings.
func Serialize(svc railway.Service, now time.Time) SerializedService {
	out := SerializedService{
		ID:               svc.ID,
		Name:             svc.Name,
		ProjectID:        svc.ProjectID,
		ProjectName:      svc.ProjectName,
		CreatedAt:        isoTime(&svc.CreatedAt),
		UpdatedAt:        isoTime(svc.UpdatedAt),
		DeploymentStatus: string(svc.Status),
		StatusUpdatedAt:  isoTime(svc.StatusUpdatedAt),
		Display:          svc.Status.Display(now, svc.StatusUpdatedAt),
	}
	if svc.Source.Valid() {
		src := svc.Source
		out.Source = &src
	}
	return out
}

// errorMessage maps a failure to what the caller sees. Tagged errors carry
// their own message; anything else gets the action's fallback.
func errorMessage(err error, fallback string) string {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return UnauthorizedMessage
	case apperr.KindGameNotFound:
		return msgGameNotFound
	case apperr.KindTemplateNotFound:
		return msgTemplateNotFound
	case apperr.KindServiceCreation,
		apperr.KindTemplateDeployment,
		apperr.KindFetchFailed,
		apperr.KindDeployFailed,
		apperr.KindDeleteFailed,
		apperr.KindRestartFailed,
		apperr.KindNotFound:
		return err.Error()
	case apperr.KindUnknown:
		return fallback
	default:
		return fallback
	}
}

func (a *Actions) failed(action string, err error, fallback string) string {
	a.log.WithError(err).WithFields(logrus.Fields{
		"action": action,
		"kind":   apperr.KindOf(err).String(),
	}).Error("Action failed")
	return errorMessage(err, fallback)
}

func authorized(ctx context.Context) bool {
	return auth.UserFromContext(ctx) != nil
}

func (a *Actions) ListServers(ctx context.Context, gameID string) Result[[]SerializedService] {
	if !authorized(ctx) {
		return fail[[]SerializedService](UnauthorizedMessage)
	}

	services, err := a.servers.ListServers(ctx, gameID)
	if err != nil {
		return fail[[]SerializedService](a.failed("listServers", err, fallbackList))
	}

	now := a.now()
	out := make([]SerializedService, 0, len(services))
	for _, svc := range services {
		out = append(out, Serialize(svc, now))
	}
	return ok(out)
}

type CreateServerData struct {
	WorkflowID string `json:"workflowId" yaml:"workflowId"`
}

// validateCreate resolves the game and rejects names that are empty or
// already used by one of the game's servers, ignoring case.
func (a *Actions) validateCreate(ctx context.Context, gameID, name string) (games.Game, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return games.Game{}, "", apperr.New(apperr.KindServiceCreation, msgEmptyName)
	}

	game, found := a.servers.Catalog().GetByID(gameID)
	if !found {
		return games.Game{}, "", apperr.New(apperr.KindGameNotFound, msgGameNotFound)
	}

	existing, err := a.servers.ListServers(ctx, gameID)
	if err != nil {
		return games.Game{}, "", err
	}
	for _, svc := range existing {
		if strings.EqualFold(strings.TrimSpace(svc.Name), name) {
			return games.Game{}, "", apperr.New(apperr.KindServiceCreation, "A server named %q already exists", name)
		}
	}
	return game, name, nil
}

// CreateServer starts a template deployment and returns its workflow id.
func (a *Actions) CreateServer(ctx context.Context, gameID, name string, env map[string]string) Result[CreateServerData] {
	if !authorized(ctx) {
		return fail[CreateServerData](UnauthorizedMessage)
	}

	game, name, err := a.validateCreate(ctx, gameID, name)
	if err != nil {
		return fail[CreateServerData](a.failed("createServer", err, fallbackCreate))
	}

	workflowID, err := a.servers.DeployTemplate(ctx, game, name, env)
	if err != nil {
		return fail[CreateServerData](a.failed("createServer", err, fallbackCreate))
	}

	a.log.WithFields(logrus.Fields{
		"game_id":     game.ID,
		"server_name": name,
		"workflow_id": workflowID,
	}).Info("Server deployment started")
	return ok(CreateServerData{WorkflowID: workflowID})
}

// CreateServerDirect builds the server one resource at a time instead of
// deploying a template. The service exists as soon as this returns.
func (a *Actions) CreateServerDirect(ctx context.Context, gameID, name string, env map[string]string) Result[SerializedService] {
	if !authorized(ctx) {
		return fail[SerializedService](UnauthorizedMessage)
	}

	game, name, err := a.validateCreate(ctx, gameID, name)
	if err != nil {
		return fail[SerializedService](a.failed("createServerDirect", err, fallbackCreate))
	}

	svc, err := a.servers.CreateServer(ctx, game, name, env)
	if svc == nil && err != nil {
		return fail[SerializedService](a.failed("createServerDirect", err, fallbackCreate))
	}
	if err != nil {
		// The service exists but some of its resources are missing.
		a.log.WithError(err).WithField("service_id", svc.ID).Warn("Server created with errors")
	}
	return ok(Serialize(*svc, a.now()))
}

func (a *Actions) RestartServer(ctx context.Context, serviceID, gameID string) Result[struct{}] {
	if !authorized(ctx) {
		return fail[struct{}](UnauthorizedMessage)
	}
	if err := a.servers.RestartServer(ctx, serviceID); err != nil {
		return fail[struct{}](a.failed("restartServer", err, fallbackRestart))
	}
	a.log.WithFields(logrus.Fields{"service_id": serviceID, "game_id": gameID}).Info("Server restarted")
	return okEmpty()
}

func (a *Actions) DeleteServer(ctx context.Context, serviceID, gameID string) Result[struct{}] {
	if !authorized(ctx) {
		return fail[struct{}](UnauthorizedMessage)
	}
	if err := a.servers.DeleteServer(ctx, serviceID); err != nil {
		return fail[struct{}](a.failed("deleteServer", err, fallbackDelete))
	}
	a.log.WithFields(logrus.Fields{"service_id": serviceID, "game_id": gameID}).Info("Server deleted")
	return okEmpty()
}

func (a *Actions) GetWorkflowStatus(ctx context.Context, workflowID string) Result[railway.WorkflowStatus] {
	if !authorized(ctx) {
		return fail[railway.WorkflowStatus](UnauthorizedMessage)
	}
	status, err := a.servers.GetWorkflowStatus(ctx, workflowID)
	if err != nil {
		return fail[railway.WorkflowStatus](a.failed("getWorkflowStatus", err, fallbackWorkflow))
	}
	return ok(status)
}
