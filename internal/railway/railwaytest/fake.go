// Package railwaytest provides an in-memory Railway gateway for tests.
package railwaytest

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charlesvien/game-nite/internal/apperr"
	"github.com/charlesvien/game-nite/internal/railway"
)

// Gateway is an in-memory stand-in for railway.Repository. Errors set on the
// *Err fields are returned by the matching calls.
type Gateway struct {
	mu sync.Mutex

	Services  []railway.Service
	Proxies   map[string][]railway.TCPProxy
	Workflows map[string]railway.WorkflowStatus

	ListErr    error
	ProxyErr   error
	DeployErr  error
	CreateErr  error
	DeleteErr  error
	RestartErr error

	Deploys  []railway.DeployTemplateOptions
	Creates  []railway.CreateServiceOptions
	Deleted  []string
	Restarts []string
	Lists    int

	nextWorkflow int
}

func New(services ...railway.Service) *Gateway {
	return &Gateway{
		Services:  services,
		Proxies:   make(map[string][]railway.TCPProxy),
		Workflows: make(map[string]railway.WorkflowStatus),
	}
}

func (g *Gateway) ListServices(ctx context.Context) ([]railway.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Lists++
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := make([]railway.Service, len(g.Services))
	copy(out, g.Services)
	return out, nil
}

func (g *Gateway) GetServiceByID(ctx context.Context, serviceID string) (*railway.Service, error) {
	services, err := g.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == serviceID {
			return &services[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) GetTCPProxies(ctx context.Context, environmentID, serviceID string) ([]railway.TCPProxy, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ProxyErr != nil {
		return nil, g.ProxyErr
	}
	return g.Proxies[serviceID], nil
}

func (g *Gateway) GetWorkflowStatus(ctx context.Context, workflowID string) (railway.WorkflowStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Workflows[workflowID], nil
}

// SetWorkflow changes the status reported for a workflow.
func (g *Gateway) SetWorkflow(workflowID string, status railway.WorkflowStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Workflows[workflowID] = status
}

func (g *Gateway) DeployTemplate(ctx context.Context, opts railway.DeployTemplateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DeployErr != nil {
		return "", g.DeployErr
	}
	g.Deploys = append(g.Deploys, opts)
	g.nextWorkflow++
	id := "workflow-" + strconv.Itoa(g.nextWorkflow)
	g.Workflows[id] = railway.WorkflowStatus{Status: "Running"}
	return id, nil
}

func (g *Gateway) CreateService(ctx context.Context, opts railway.CreateServiceOptions) (*railway.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	for _, s := range g.Services {
		if strings.EqualFold(s.Name, opts.Name) {
			return nil, apperr.New(apperr.KindServiceCreation, "Failed to create service: a service named %q already exists", s.Name)
		}
	}
	g.Creates = append(g.Creates, opts)
	svc := railway.Service{
		ID:        "svc-" + opts.Name,
		Name:      opts.Name,
		Source:    opts.Source,
		CreatedAt: time.Now(),
		Status:    railway.StatusBuilding,
	}
	g.Services = append(g.Services, svc)
	return &svc, nil
}

func (g *Gateway) DeleteService(ctx context.Context, serviceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DeleteErr != nil {
		return g.DeleteErr
	}
	g.Deleted = append(g.Deleted, serviceID)
	for i, s := range g.Services {
		if s.ID == serviceID {
			g.Services = append(g.Services[:i], g.Services[i+1:]...)
			break
		}
	}
	return nil
}

func (g *Gateway) RestartService(ctx context.Context, serviceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RestartErr != nil {
		return g.RestartErr
	}
	g.Restarts = append(g.Restarts, serviceID)
	return nil
}

// DeployCount returns the number of template deployments issued.
func (g *Gateway) DeployCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Deploys)
}
