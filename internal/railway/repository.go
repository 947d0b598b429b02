package railway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charlesvien/game-nite/internal/apperr"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// volumeDeleteConcurrency bounds parallel volume deletes during cleanup.
const (
	volumeDeleteConcurrency = 4

	// listTimeout bounds a shared ListServices round trip, which no single
	// caller can cancel.
	listTimeout = 30 * time.Second
)

// Repository is the gateway to one Railway project and environment.
type Repository struct {
	client        *Client
	projectID     string
	environmentID string
	workspaceID   string
	log           *logrus.Entry

	listGroup singleflight.Group
}

type RepositoryConfig struct {
	ProjectID     string
	EnvironmentID string
	WorkspaceID   string
	Logger        *logrus.Entry
}

func NewRepository(client *Client, cfg RepositoryConfig) *Repository {
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Repository{
		client:        client,
		projectID:     cfg.ProjectID,
		environmentID: cfg.EnvironmentID,
		workspaceID:   cfg.WorkspaceID,
		log:           log.WithField("component", "railway"),
	}
}

func (r *Repository) EnvironmentID() string {
	return r.environmentID
}

type projectData struct {
	Project *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Services struct {
			Edges []struct {
				Node serviceNode `json:"node"`
			} `json:"edges"`
		} `json:"services"`
	} `json:"project"`
}

type serviceNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	Deployments struct {
		Edges []struct {
			Node deploymentNode `json:"node"`
		} `json:"edges"`
	} `json:"deployments"`
}

type deploymentNode struct {
	ID              string         `json:"id"`
	EnvironmentID   string         `json:"environmentId"`
	Status          string         `json:"status"`
	StatusUpdatedAt *time.Time     `json:"statusUpdatedAt"`
	StaticURL       string         `json:"staticUrl"`
	Meta            map[string]any `json:"meta"`
}

// ListServices returns every service in the project with its latest
// deployment status. Concurrent calls share one round trip. The shared fetch
// outlives any one caller's cancellation; each caller stops waiting when its
// own ctx ends.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	ch := r.listGroup.DoChan("services", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listTimeout)
		defer cancel()
		return r.fetchServices(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.KindFetchFailed, ctx.Err(), "Failed to fetch services")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]Service)
		out := make([]Service, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (r *Repository) fetchServices(ctx context.Context) ([]Service, error) {
	var data projectData
	err := r.client.Do(ctx, Request{
		OperationName: "GetProject",
		Query:         getProjectQuery,
		Variables:     map[string]any{"projectId": r.projectID},
	}, &data)
	if err != nil {
		r.log.WithError(err).Error("Error fetching services")
		return nil, apperr.Wrap(apperr.KindFetchFailed, err, "Failed to fetch services")
	}

	if data.Project == nil {
		r.log.Error("No project data returned")
		return []Service{}, nil
	}

	services := make([]Service, 0, len(data.Project.Services.Edges))
	for _, edge := range data.Project.Services.Edges {
		node := edge.Node
		svc := Service{
			ID:            node.ID,
			Name:          node.Name,
			ProjectID:     data.Project.ID,
			ProjectName:   data.Project.Name,
			EnvironmentID: r.environmentID,
			CreatedAt:     node.CreatedAt,
			UpdatedAt:     node.UpdatedAt,
		}
		if len(node.Deployments.Edges) > 0 {
			latest := node.Deployments.Edges[0].Node
			svc.Status = DeploymentStatus(latest.Status)
			svc.StatusUpdatedAt = latest.StatusUpdatedAt
			svc.Source = sourceFromMeta(latest.Meta)
		}
		services = append(services, svc)
	}
	return services, nil
}

func sourceFromMeta(meta map[string]any) games.Source {
	var src games.Source
	if image, ok := meta["image"].(string); ok {
		src.Image = image
	}
	if repo, ok := meta["repo"].(string); ok {
		src.Repo = repo
	}
	return src
}

// GetServiceByID scans the service list; it returns nil when absent.
func (r *Repository) GetServiceByID(ctx context.Context, serviceID string) (*Service, error) {
	services, err := r.ListServices(ctx)
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

func (r *Repository) GetTCPProxies(ctx context.Context, environmentID, serviceID string) ([]TCPProxy, error) {
	var data struct {
		TCPProxies []TCPProxy `json:"tcpProxies"`
	}
	err := r.client.Do(ctx, Request{
		OperationName: "GetTcpProxies",
		Query:         getTCPProxiesQuery,
		Variables: map[string]any{
			"environmentId": environmentID,
			"serviceId":     serviceID,
		},
	}, &data)
	if err != nil {
		r.log.WithError(err).WithField("service_id", serviceID).Error("Error fetching TCP proxies")
		return nil, apperr.Wrap(apperr.KindFetchFailed, err, "Failed to fetch TCP proxies")
	}
	if data.TCPProxies == nil {
		return []TCPProxy{}, nil
	}
	return data.TCPProxies, nil
}

func (r *Repository) GetWorkflowStatus(ctx context.Context, workflowID string) (WorkflowStatus, error) {
	var data struct {
		WorkflowStatus *struct {
			Status *string `json:"status"`
			Error  *string `json:"error"`
		} `json:"workflowStatus"`
	}
	err := r.client.Do(ctx, Request{
		OperationName: "GetWorkflowStatus",
		Query:         getWorkflowStatusQuery,
		Variables:     map[string]any{"workflowId": workflowID},
	}, &data)
	if err != nil {
		r.log.WithError(err).WithField("workflow_id", workflowID).Error("Error fetching workflow status")
		return WorkflowStatus{}, apperr.Wrap(apperr.KindFetchFailed, err, "Failed to fetch workflow status")
	}

	var status WorkflowStatus
	if ws := data.WorkflowStatus; ws != nil {
		if ws.Status != nil {
			status.Status = *ws.Status
		}
		if ws.Error != nil {
			status.Error = *ws.Error
		}
	}
	return status, nil
}

// DeployTemplate starts a template deployment and returns its workflow id.
// Name uniqueness is not checked here.
func (r *Repository) DeployTemplate(ctx context.Context, opts DeployTemplateOptions) (string, error) {
	vars := map[string]any{
		"serviceId":               opts.ServiceName,
		"serviceName":             opts.ServiceName,
		"templateId":              opts.Source.Template(),
		"tcpProxyApplicationPort": opts.TCPProxyApplicationPort,
		"environmentId":           r.environmentID,
		"projectId":               r.projectID,
		"workspaceId":             r.workspaceID,
		"variables":               nonNilVariables(opts.Variables),
	}

	req := Request{OperationName: "DeployTemplateNoVolume", Query: deployTemplateNoVolumeMutation, Variables: vars}
	if opts.VolumeMountPath != "" {
		vars["volumeMountPath"] = opts.VolumeMountPath
		vars["volumeName"] = opts.ServiceName
		req = Request{OperationName: "DeployTemplate", Query: deployTemplateMutation, Variables: vars}
	}

	var data struct {
		TemplateDeploy *struct {
			ProjectID  string `json:"projectId"`
			WorkflowID string `json:"workflowId"`
		} `json:"templateDeploy"`
	}
	if err := r.client.Do(ctx, req, &data); err != nil {
		r.log.WithError(err).WithField("service_name", opts.ServiceName).Error("Error deploying template")
		return "", apperr.Wrap(apperr.KindDeployFailed, err, "Failed to deploy template")
	}
	if data.TemplateDeploy == nil {
		return "", nil
	}

	r.log.WithFields(logrus.Fields{
		"service_name": opts.ServiceName,
		"workflow_id":  data.TemplateDeploy.WorkflowID,
	}).Info("Template deployment started")
	return data.TemplateDeploy.WorkflowID, nil
}

// CreateService creates a service from an image or repo, then sets its
// variables, volume and TCP proxy. Names are unique per project,
// case-insensitively. If a follow-up step fails the created service is still
// returned together with the error.
func (r *Repository) CreateService(ctx context.Context, opts CreateServiceOptions) (*Service, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindServiceCreation, "Failed to create service: name is required")
	}
	if !opts.Source.Valid() {
		return nil, apperr.New(apperr.KindServiceCreation, "Failed to create service: no source configured")
	}

	existing, err := r.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range existing {
		if strings.EqualFold(s.Name, name) {
			return nil, apperr.New(apperr.KindServiceCreation,
				"Failed to create service: a service named %q already exists", s.Name)
		}
	}

	source := map[string]any{}
	if opts.Source.Image != "" {
		source["image"] = opts.Source.Image
	} else {
		source["repo"] = opts.Source.Repo
	}

	var data struct {
		ServiceCreate *serviceNode `json:"serviceCreate"`
	}
	err = r.client.Do(ctx, Request{
		OperationName: "CreateService",
		Query:         createServiceMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"projectId":     r.projectID,
				"environmentId": r.environmentID,
				"name":          name,
				"source":        source,
			},
		},
	}, &data)
	if err != nil {
		r.log.WithError(err).WithField("service_name", name).Error("Error creating service")
		return nil, apperr.Wrap(apperr.KindServiceCreation, err, "Failed to create service")
	}
	if data.ServiceCreate == nil {
		return nil, apperr.New(apperr.KindServiceCreation, "Failed to create service: empty response")
	}

	svc := &Service{
		ID:            data.ServiceCreate.ID,
		Name:          data.ServiceCreate.Name,
		ProjectID:     r.projectID,
		EnvironmentID: r.environmentID,
		Source:        opts.Source,
		CreatedAt:     data.ServiceCreate.CreatedAt,
		UpdatedAt:     data.ServiceCreate.UpdatedAt,
	}
	log := r.log.WithField("service_id", svc.ID)

	var errs []error
	keys := make([]string, 0, len(opts.Variables))
	for key := range opts.Variables {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := r.upsertVariable(ctx, svc.ID, key, opts.Variables[key]); err != nil {
			log.WithError(err).WithField("variable", key).Warn("Failed to set variable")
			errs = append(errs, fmt.Errorf("variable %s: %w", key, err))
		}
	}
	if opts.VolumeMountPath != "" {
		if err := r.createVolume(ctx, svc.ID, opts.VolumeMountPath); err != nil {
			log.WithError(err).Warn("Failed to create volume")
			errs = append(errs, fmt.Errorf("volume: %w", err))
		}
	}
	if opts.TCPProxyApplicationPort > 0 {
		if err := r.createTCPProxy(ctx, svc.ID, opts.TCPProxyApplicationPort); err != nil {
			log.WithError(err).Warn("Failed to create TCP proxy")
			errs = append(errs, fmt.Errorf("tcp proxy: %w", err))
		}
	}

	if len(errs) > 0 {
		return svc, apperr.Wrap(apperr.KindServiceCreation, errors.Join(errs...), "Failed to configure service")
	}
	log.Info("Created service")
	return svc, nil
}

func (r *Repository) upsertVariable(ctx context.Context, serviceID, name, value string) error {
	return r.client.Do(ctx, Request{
		OperationName: "UpsertVariable",
		Query:         upsertVariableMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"projectId":     r.projectID,
				"environmentId": r.environmentID,
				"serviceId":     serviceID,
				"name":          name,
				"value":         value,
			},
		},
	}, nil)
}

func (r *Repository) createVolume(ctx context.Context, serviceID, mountPath string) error {
	return r.client.Do(ctx, Request{
		OperationName: "CreateVolume",
		Query:         createVolumeMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"projectId":     r.projectID,
				"environmentId": r.environmentID,
				"serviceId":     serviceID,
				"mountPath":     mountPath,
			},
		},
	}, nil)
}

func (r *Repository) createTCPProxy(ctx context.Context, serviceID string, port int) error {
	return r.client.Do(ctx, Request{
		OperationName: "CreateTcpProxy",
		Query:         createTCPProxyMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"environmentId":   r.environmentID,
				"serviceId":       serviceID,
				"applicationPort": port,
			},
		},
	}, nil)
}

// DeleteService deletes a service and then, best effort, every volume whose
// instances reference it. Only the service delete can fail the call.
func (r *Repository) DeleteService(ctx context.Context, serviceID string) error {
	log := r.log.WithField("service_id", serviceID)

	// Volumes are looked up first; their instance records may go away with
	// the service.
	volumeIDs, err := r.volumesForService(ctx, serviceID)
	if err != nil {
		log.WithError(err).Warn("Could not query volumes")
	}

	log.Info("Attempting to delete service")
	err = r.client.Do(ctx, Request{
		OperationName: "DeleteService",
		Query:         deleteServiceMutation,
		Variables:     map[string]any{"serviceId": serviceID},
	}, nil)
	if err != nil {
		log.WithError(err).Error("Error deleting service")
		return apperr.Wrap(apperr.KindDeleteFailed, err, "Failed to delete service")
	}
	log.Info("Deleted service")

	if len(volumeIDs) == 0 {
		log.Info("No volumes to delete")
		return nil
	}
	r.deleteVolumes(ctx, log, volumeIDs)
	return nil
}

func (r *Repository) volumesForService(ctx context.Context, serviceID string) ([]string, error) {
	var data struct {
		Project *struct {
			Volumes struct {
				Edges []struct {
					Node struct {
						VolumeInstances struct {
							Edges []struct {
								Node struct {
									ServiceID string `json:"serviceId"`
									VolumeID  string `json:"volumeId"`
								} `json:"node"`
							} `json:"edges"`
						} `json:"volumeInstances"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"volumes"`
		} `json:"project"`
	}
	err := r.client.Do(ctx, Request{
		OperationName: "GetProjectVolumes",
		Query:         getProjectVolumesQuery,
		Variables:     map[string]any{"projectId": r.projectID},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, volume := range data.Project.Volumes.Edges {
		for _, instance := range volume.Node.VolumeInstances.Edges {
			if instance.Node.ServiceID != serviceID || instance.Node.VolumeID == "" {
				continue
			}
			if seen[instance.Node.VolumeID] {
				continue
			}
			seen[instance.Node.VolumeID] = true
			ids = append(ids, instance.Node.VolumeID)
		}
	}
	return ids, nil
}

// deleteVolumes deletes volumes in parallel. Each failure is logged and does
// not affect the others.
func (r *Repository) deleteVolumes(ctx context.Context, log *logrus.Entry, volumeIDs []string) {
	log.Infof("Deleting %d volumes", len(volumeIDs))

	var g errgroup.Group
	g.SetLimit(volumeDeleteConcurrency)
	for _, volumeID := range volumeIDs {
		volumeID := volumeID
		g.Go(func() error {
			err := r.client.Do(ctx, Request{
				OperationName: "DeleteVolume",
				Query:         deleteVolumeMutation,
				Variables:     map[string]any{"volumeId": volumeID},
			}, nil)
			if err != nil {
				log.WithError(err).WithField("volume_id", volumeID).Error("Failed to delete volume")
				return nil
			}
			log.WithField("volume_id", volumeID).Info("Deleted volume")
			return nil
		})
	}
	_ = g.Wait()
}

// RestartService redeploys the service's current instance.
func (r *Repository) RestartService(ctx context.Context, serviceID string) error {
	err := r.client.Do(ctx, Request{
		OperationName: "RestartService",
		Query:         restartServiceMutation,
		Variables: map[string]any{
			"serviceId":     serviceID,
			"environmentId": r.environmentID,
		},
	}, nil)
	if err != nil {
		r.log.WithError(err).WithField("service_id", serviceID).Error("Error restarting service")
		return apperr.Wrap(apperr.KindRestartFailed, err, "Failed to restart service")
	}
	return nil
}

func nonNilVariables(vars map[string]string) map[string]string {
	if vars == nil {
		return map[string]string{}
	}
	return vars
}
