package servers

import (
	"context"
	"errors"
	"strconv"

	"github.com/charlesvien/game-nite/internal/apperr"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/railway"
)

// ErrNotFound is returned when a share page cannot be built for a service.
var ErrNotFound = apperr.New(apperr.KindNotFound, "The requested resource was not found")

// Gateway is the subset of the Railway repository the service needs.
type Gateway interface {
	ListServices(ctx context.Context) ([]railway.Service, error)
	GetServiceByID(ctx context.Context, serviceID string) (*railway.Service, error)
	GetTCPProxies(ctx context.Context, environmentID, serviceID string) ([]railway.TCPProxy, error)
	GetWorkflowStatus(ctx context.Context, workflowID string) (railway.WorkflowStatus, error)
	DeployTemplate(ctx context.Context, opts railway.DeployTemplateOptions) (string, error)
	CreateService(ctx context.Context, opts railway.CreateServiceOptions) (*railway.Service, error)
	DeleteService(ctx context.Context, serviceID string) error
	RestartService(ctx context.Context, serviceID string) error
}

// Service implements the game-server use cases on top of the catalog and
// the Railway gateway.
type Service struct {
	gateway Gateway
	catalog *games.Catalog
}

func NewService(gateway Gateway, catalog *games.Catalog) *Service {
	return &Service{gateway: gateway, catalog: catalog}
}

func (s *Service) Catalog() *games.Catalog {
	return s.catalog
}

// ListServers returns the servers deployed for a game. An unknown game has
// no servers.
func (s *Service) ListServers(ctx context.Context, gameID string) ([]railway.Service, error) {
	game, ok := s.catalog.GetByID(gameID)
	if !ok {
		return []railway.Service{}, nil
	}

	all, err := s.gateway.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]railway.Service, 0, len(all))
	for _, svc := range all {
		if games.Matches(game, svc.Source) {
			filtered = append(filtered, svc)
		}
	}
	return filtered, nil
}

// DeployTemplate starts a template deployment for a new server and returns
// the workflow id. Callers must check name uniqueness first.
func (s *Service) DeployTemplate(ctx context.Context, game games.Game, name string, customEnv map[string]string) (string, error) {
	if !game.CanDeploy() {
		return "", apperr.New(apperr.KindTemplateNotFound, "Template not found for game: %s", game.ID)
	}

	workflowID, err := s.gateway.DeployTemplate(ctx, railway.DeployTemplateOptions{
		ServiceName:             name,
		Source:                  game.Source,
		TCPProxyApplicationPort: game.DefaultPort,
		Variables:               game.Environment(customEnv),
		VolumeMountPath:         game.VolumeMountPath,
	})
	if err != nil {
		var tagged *apperr.Error
		if errors.As(err, &tagged) {
			return "", err
		}
		return "", apperr.Wrap(apperr.KindTemplateDeployment, err, "Failed to deploy template")
	}
	return workflowID, nil
}

// CreateServer builds a server step by step (service, variables, volume, TCP
// proxy) instead of through a template deployment.
func (s *Service) CreateServer(ctx context.Context, game games.Game, name string, customEnv map[string]string) (*railway.Service, error) {
	if !game.CanDeploy() {
		return nil, apperr.New(apperr.KindTemplateNotFound, "Template not found for game: %s", game.ID)
	}
	return s.gateway.CreateService(ctx, railway.CreateServiceOptions{
		Name:                    name,
		Source:                  game.Source,
		Variables:               game.Environment(customEnv),
		TCPProxyApplicationPort: game.DefaultPort,
		VolumeMountPath:         game.VolumeMountPath,
	})
}

func (s *Service) RestartServer(ctx context.Context, serviceID string) error {
	return s.gateway.RestartService(ctx, serviceID)
}

func (s *Service) DeleteServer(ctx context.Context, serviceID string) error {
	return s.gateway.DeleteService(ctx, serviceID)
}

func (s *Service) GetServerByID(ctx context.Context, serviceID string) (*railway.Service, error) {
	return s.gateway.GetServiceByID(ctx, serviceID)
}

func (s *Service) GetWorkflowStatus(ctx context.Context, workflowID string) (railway.WorkflowStatus, error) {
	return s.gateway.GetWorkflowStatus(ctx, workflowID)
}

// ConnectionDetails is what the public share page shows.
type ConnectionDetails struct {
	ServiceID  string `json:"serviceId"`
	ServerName string `json:"serverName"`
	GameID     string `json:"gameId"`
	Game       string `json:"game"`
	Address    string `json:"address"`
	Port       string `json:"port"`
	Password   string `json:"password"`
}

// ConnectionDetails resolves the public endpoint of a server. The server must
// exist, map back to a catalog game and have an active TCP proxy.
func (s *Service) ConnectionDetails(ctx context.Context, serviceID string) (*ConnectionDetails, error) {
	svc, err := s.gateway.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.Source.Valid() {
		return nil, ErrNotFound
	}

	proxies, err := s.gateway.GetTCPProxies(ctx, svc.EnvironmentID, serviceID)
	if err != nil {
		return nil, err
	}
	if len(proxies) == 0 {
		return nil, ErrNotFound
	}

	game, ok := s.catalog.BySource(svc.Source)
	if !ok {
		return nil, ErrNotFound
	}

	return &ConnectionDetails{
		ServiceID:  svc.ID,
		ServerName: svc.Name,
		GameID:     game.ID,
		Game:       game.Name,
		Address:    proxies[0].Domain,
		Port:       strconv.Itoa(proxies[0].ProxyPort),
		Password:   "Generated when server starts",
	}, nil
}
