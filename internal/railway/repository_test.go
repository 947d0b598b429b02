package railway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charlesvien/game-nite/internal/apperr"
	"github.com/charlesvien/game-nite/internal/games"
	"github.com/charlesvien/game-nite/internal/railway"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	testProjectID     = "test-project-id"
	testEnvironmentID = "test-environment-id"
	testWorkspaceID   = "test-workspace-id"
	testServiceID     = "test-service-id"
)

type recordedCall struct {
	Operation string
	Variables map[string]any
}

// fakeBackend answers GraphQL operations by operation name and records every
// request it sees.
type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]func(vars map[string]any) (data any, errMsg string)
	auth     []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:        t,
		handlers: make(map[string]func(map[string]any) (any, string)),
	}
}

func (f *fakeBackend) handle(op string, fn func(vars map[string]any) (any, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[op] = fn
}

func (f *fakeBackend) respond(op string, data any) {
	f.handle(op, func(map[string]any) (any, string) { return data, "" })
}

func (f *fakeBackend) fail(op string, msg string) {
	f.handle(op, func(map[string]any) (any, string) { return nil, msg })
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Errorf("read body: %v", err)
		return
	}
	var req railway.Request
	if err := json.Unmarshal(body, &req); err != nil {
		f.t.Errorf("decode request: %v", err)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Operation: req.OperationName, Variables: req.Variables})
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	handler, ok := f.handlers[req.OperationName]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
		return
	}

	data, errMsg := handler(req.Variables)
	if errMsg != "" {
		json.NewEncoder(w).Encode(map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": errMsg}},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *fakeBackend) callsTo(op string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Operation == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ops []string
	for _, c := range f.calls {
		ops = append(ops, c.Operation)
	}
	return ops
}

func newTestRepository(t *testing.T, backend *fakeBackend) *railway.Repository {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := railway.NewClient("test-token", railway.WithEndpoint(server.URL))
	return railway.NewRepository(client, railway.RepositoryConfig{
		ProjectID:     testProjectID,
		EnvironmentID: testEnvironmentID,
		WorkspaceID:   testWorkspaceID,
		Logger:        logrus.NewEntry(logger),
	})
}

func volumesData(instances ...[2]string) map[string]any {
	var edges []map[string]any
	for _, inst := range instances {
		edges = append(edges, map[string]any{
			"node": map[string]any{
				"volumeInstances": map[string]any{
					"edges": []map[string]any{
						{"node": map[string]any{"serviceId": inst[0], "volumeId": inst[1]}},
					},
				},
			},
		})
	}
	return map[string]any{"project": map[string]any{"volumes": map[string]any{"edges": edges}}}
}

func TestDeleteService_DeletesMatchingVolumes(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", volumesData(
		[2]string{testServiceID, "volume-1"},
		[2]string{testServiceID, "volume-2"},
		[2]string{"other-service", "volume-3"},
	))
	backend.respond("DeleteService", map[string]any{"serviceDelete": true})
	backend.respond("DeleteVolume", map[string]any{"volumeDelete": true})

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("DeleteService() error: %v", err)
	}

	deletes := backend.callsTo("DeleteService")
	if len(deletes) != 1 {
		t.Fatalf("expected 1 service delete, got %d", len(deletes))
	}
	if deletes[0].Variables["serviceId"] != testServiceID {
		t.Errorf("unexpected service delete variables: %v", deletes[0].Variables)
	}

	volumeDeletes := backend.callsTo("DeleteVolume")
	if len(volumeDeletes) != 2 {
		t.Fatalf("expected 2 volume deletes, got %d", len(volumeDeletes))
	}
	var ids []string
	for _, c := range volumeDeletes {
		ids = append(ids, c.Variables["volumeId"].(string))
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"volume-1", "volume-2"}) {
		t.Errorf("unexpected deleted volumes: %v", ids)
	}

	queries := backend.callsTo("GetProjectVolumes")
	if len(queries) != 1 || queries[0].Variables["projectId"] != testProjectID {
		t.Errorf("expected one volume query for the project, got %v", queries)
	}

	// Volume instances are read while the service still exists.
	if ops := backend.operations(); len(ops) < 2 || ops[0] != "GetProjectVolumes" || ops[1] != "DeleteService" {
		t.Errorf("expected volume lookup before service delete, got %v", ops)
	}
}

func TestDeleteService_MultipleInstancesOnOneVolume(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", map[string]any{
		"project": map[string]any{"volumes": map[string]any{"edges": []map[string]any{
			{"node": map[string]any{"volumeInstances": map[string]any{"edges": []map[string]any{
				{"node": map[string]any{"serviceId": testServiceID, "volumeId": "volume-1"}},
				{"node": map[string]any{"serviceId": testServiceID, "volumeId": "volume-2"}},
			}}}},
		}}},
	})

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("DeleteService() error: %v", err)
	}

	if got := len(backend.callsTo("DeleteVolume")); got != 2 {
		t.Errorf("expected 2 volume deletes, got %d", got)
	}
}

func TestDeleteService_DeduplicatesVolumeIDs(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", volumesData(
		[2]string{testServiceID, "volume-1"},
		[2]string{testServiceID, "volume-1"},
	))

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("DeleteService() error: %v", err)
	}

	if got := len(backend.callsTo("DeleteService")); got != 1 {
		t.Errorf("expected 1 service delete, got %d", got)
	}
	if got := len(backend.callsTo("DeleteVolume")); got != 1 {
		t.Errorf("expected 1 volume delete, got %d", got)
	}
}

func TestDeleteService_NoMatchingVolumes(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", volumesData([2]string{"other-service", "volume-1"}))

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("DeleteService() error: %v", err)
	}

	if got := len(backend.callsTo("DeleteVolume")); got != 0 {
		t.Errorf("expected no volume deletes, got %d", got)
	}
}

func TestDeleteService_VolumeQueryFailureIsNotFatal(t *testing.T) {
	backend := newFakeBackend(t)
	backend.fail("GetProjectVolumes", "Query failed")
	backend.respond("DeleteService", map[string]any{"serviceDelete": true})

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("expected volume query failure to be swallowed, got %v", err)
	}

	if got := len(backend.callsTo("DeleteService")); got != 1 {
		t.Errorf("expected service delete to proceed, got %d calls", got)
	}
}

func TestDeleteService_VolumeDeleteFailuresAreIsolated(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", volumesData(
		[2]string{testServiceID, "volume-1"},
		[2]string{testServiceID, "volume-2"},
	))
	backend.handle("DeleteVolume", func(vars map[string]any) (any, string) {
		if vars["volumeId"] == "volume-1" {
			return nil, "volume busy"
		}
		return map[string]any{"volumeDelete": true}, ""
	})

	repo := newTestRepository(t, backend)
	if err := repo.DeleteService(context.Background(), testServiceID); err != nil {
		t.Fatalf("expected volume delete failure to be swallowed, got %v", err)
	}
	if got := len(backend.callsTo("DeleteVolume")); got != 2 {
		t.Errorf("expected both volume deletes to be attempted, got %d", got)
	}
}

func TestDeleteService_ServiceDeleteFailure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProjectVolumes", volumesData([2]string{testServiceID, "volume-1"}))
	backend.fail("DeleteService", "not allowed")

	repo := newTestRepository(t, backend)
	err := repo.DeleteService(context.Background(), testServiceID)
	if !apperr.Is(err, apperr.KindDeleteFailed) {
		t.Fatalf("expected DeleteFailed, got %v", err)
	}
	if err.Error() != "Failed to delete service: not allowed" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if got := len(backend.callsTo("DeleteVolume")); got != 0 {
		t.Errorf("expected no volume deletes after a failed service delete, got %d", got)
	}
}

func TestListServices(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProject", map[string]any{
		"project": map[string]any{
			"id":   testProjectID,
			"name": "game-nite",
			"services": map[string]any{"edges": []map[string]any{
				{"node": map[string]any{
					"id":        "svc-1",
					"name":      "Friday Night",
					"createdAt": "2025-01-02T03:04:05.000Z",
					"updatedAt": "2025-01-02T04:04:05.000Z",
					"deployments": map[string]any{"edges": []map[string]any{
						{"node": map[string]any{
							"id":              "dep-1",
							"status":          "SUCCESS",
							"statusUpdatedAt": "2025-01-02T04:00:00Z",
							"meta":            map[string]any{"image": "itzg/minecraft-server"},
						}},
					}},
				}},
				{"node": map[string]any{
					"id":          "svc-2",
					"name":        "repo-backed",
					"createdAt":   "2025-01-03T00:00:00Z",
					"deployments": map[string]any{"edges": []map[string]any{}},
				}},
			}},
		},
	})

	repo := newTestRepository(t, backend)
	services, err := repo.ListServices(context.Background())
	if err != nil {
		t.Fatalf("ListServices() error: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}

	first := services[0]
	if first.ID != "svc-1" || first.ProjectName != "game-nite" || first.EnvironmentID != testEnvironmentID {
		t.Errorf("unexpected service: %+v", first)
	}
	if first.Status != railway.StatusSuccess || first.StatusUpdatedAt == nil {
		t.Errorf("unexpected status: %q %v", first.Status, first.StatusUpdatedAt)
	}
	if first.Source != (games.Source{Image: "itzg/minecraft-server"}) {
		t.Errorf("unexpected source: %+v", first.Source)
	}
	if first.CreatedAt.Year() != 2025 || first.UpdatedAt == nil {
		t.Errorf("unexpected timestamps: %v %v", first.CreatedAt, first.UpdatedAt)
	}

	second := services[1]
	if second.Status != "" || second.Source.Valid() {
		t.Errorf("expected no deployment data, got %+v", second)
	}

	backend.mu.Lock()
	auth := backend.auth[0]
	backend.mu.Unlock()
	if auth != "Bearer test-token" {
		t.Errorf("expected bearer token, got %q", auth)
	}
}

func TestListServices_Failure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.fail("GetProject", "Not Authorized")

	repo := newTestRepository(t, backend)
	_, err := repo.ListServices(context.Background())
	if !apperr.Is(err, apperr.KindFetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
	if err.Error() != "Failed to fetch services: Not Authorized" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestListServices_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	repo := railway.NewRepository(
		railway.NewClient("token", railway.WithEndpoint(server.URL)),
		railway.RepositoryConfig{ProjectID: testProjectID},
	)
	if _, err := repo.ListServices(context.Background()); !apperr.Is(err, apperr.KindFetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
}

func TestListServices_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var releaseOnce sync.Once

	backend := newFakeBackend(t)
	backend.handle("GetProject", func(map[string]any) (any, string) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return map[string]any{
			"project": map[string]any{
				"id":   testProjectID,
				"name": "game-nite",
				"services": map[string]any{"edges": []map[string]any{
					{"node": map[string]any{
						"id":          "svc-1",
						"name":        "Friday Night",
						"createdAt":   "2025-01-02T03:04:05Z",
						"deployments": map[string]any{"edges": []map[string]any{}},
					}},
				}},
			},
		}, ""
	})
	repo := newTestRepository(t, backend)
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := repo.ListServices(ctxA)
		errA <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("GetProject was never requested")
	}

	type result struct {
		services []railway.Service
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		services, err := repo.ListServices(context.Background())
		resB <- result{services, err}
	}()
	// Give the second caller time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !apperr.Is(err, apperr.KindFetchFailed) || !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller: expected FetchFailed wrapping context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	releaseOnce.Do(func() { close(release) })
	select {
	case res := <-resB:
		if res.err != nil {
			t.Fatalf("second caller failed: %v", res.err)
		}
		if len(res.services) != 1 || res.services[0].ID != "svc-1" {
			t.Errorf("unexpected services: %+v", res.services)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestRepository_TagsLogsWithComponent(t *testing.T) {
	backend := newFakeBackend(t)
	backend.fail("GetProject", "Not Authorized")
	server := httptest.NewServer(backend)
	defer server.Close()

	logger, hook := logtest.NewNullLogger()
	repo := railway.NewRepository(
		railway.NewClient("token", railway.WithEndpoint(server.URL)),
		railway.RepositoryConfig{ProjectID: testProjectID, Logger: logrus.NewEntry(logger)},
	)
	if _, err := repo.ListServices(context.Background()); err == nil {
		t.Fatal("expected ListServices to fail")
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["component"] != "railway" {
		t.Errorf("component = %v, want railway", entry.Data["component"])
	}
}

func TestGetServiceByID(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProject", map[string]any{
		"project": map[string]any{
			"id": testProjectID,
			"services": map[string]any{"edges": []map[string]any{
				{"node": map[string]any{"id": "svc-1", "name": "a", "createdAt": "2025-01-01T00:00:00Z"}},
				{"node": map[string]any{"id": "svc-2", "name": "b", "createdAt": "2025-01-01T00:00:00Z"}},
			}},
		},
	})

	repo := newTestRepository(t, backend)
	svc, err := repo.GetServiceByID(context.Background(), "svc-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil || svc.Name != "b" {
		t.Fatalf("expected service b, got %+v", svc)
	}

	missing, err := repo.GetServiceByID(context.Background(), "svc-9")
	if err != nil || missing != nil {
		t.Errorf("expected nil service for unknown id, got %+v, %v", missing, err)
	}
}

func TestGetWorkflowStatus_DefaultsMissingFields(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetWorkflowStatus", map[string]any{"workflowStatus": map[string]any{"status": "Running"}})

	repo := newTestRepository(t, backend)
	status, err := repo.GetWorkflowStatus(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "Running" || status.Error != "" {
		t.Errorf("unexpected status: %+v", status)
	}

	backend.respond("GetWorkflowStatus", map[string]any{"workflowStatus": nil})
	status, err = repo.GetWorkflowStatus(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != (railway.WorkflowStatus{}) {
		t.Errorf("expected empty status, got %+v", status)
	}
}

func TestGetTCPProxies(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetTcpProxies", map[string]any{"tcpProxies": []map[string]any{
		{"domain": "roundhouse.proxy.rlwy.net", "proxyPort": 41234, "serviceId": testServiceID},
	}})

	repo := newTestRepository(t, backend)
	proxies, err := repo.GetTCPProxies(context.Background(), testEnvironmentID, testServiceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proxies) != 1 || proxies[0].ProxyPort != 41234 || proxies[0].Domain != "roundhouse.proxy.rlwy.net" {
		t.Errorf("unexpected proxies: %+v", proxies)
	}

	calls := backend.callsTo("GetTcpProxies")
	if calls[0].Variables["environmentId"] != testEnvironmentID || calls[0].Variables["serviceId"] != testServiceID {
		t.Errorf("unexpected variables: %v", calls[0].Variables)
	}

	backend.fail("GetTcpProxies", "boom")
	if _, err := repo.GetTCPProxies(context.Background(), testEnvironmentID, testServiceID); !apperr.Is(err, apperr.KindFetchFailed) {
		t.Errorf("expected FetchFailed, got %v", err)
	}
}

func TestDeployTemplate(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("DeployTemplate", map[string]any{
		"templateDeploy": map[string]any{"projectId": testProjectID, "workflowId": "wf-123"},
	})

	repo := newTestRepository(t, backend)
	workflowID, err := repo.DeployTemplate(context.Background(), railway.DeployTemplateOptions{
		ServiceName:             "friday",
		Source:                  games.Source{Image: "itzg/minecraft-server"},
		TCPProxyApplicationPort: 25565,
		Variables:               map[string]string{"EULA": "TRUE", "PORT": "25565"},
		VolumeMountPath:         "/data",
	})
	if err != nil {
		t.Fatalf("DeployTemplate() error: %v", err)
	}
	if workflowID != "wf-123" {
		t.Errorf("expected wf-123, got %q", workflowID)
	}

	calls := backend.callsTo("DeployTemplate")
	if len(calls) != 1 {
		t.Fatalf("expected one deploy call, got %d", len(calls))
	}
	vars := calls[0].Variables
	checks := map[string]any{
		"serviceName":             "friday",
		"templateId":              "itzg/minecraft-server",
		"tcpProxyApplicationPort": float64(25565),
		"projectId":               testProjectID,
		"environmentId":           testEnvironmentID,
		"workspaceId":             testWorkspaceID,
		"volumeMountPath":         "/data",
		"volumeName":              "friday",
	}
	for k, want := range checks {
		if vars[k] != want {
			t.Errorf("variable %s = %v, want %v", k, vars[k], want)
		}
	}
	envVars := vars["variables"].(map[string]any)
	if envVars["EULA"] != "TRUE" || envVars["PORT"] != "25565" {
		t.Errorf("unexpected env variables: %v", envVars)
	}
}

func TestDeployTemplate_WithoutVolume(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("DeployTemplateNoVolume", map[string]any{
		"templateDeploy": map[string]any{"workflowId": "wf-9"},
	})

	repo := newTestRepository(t, backend)
	workflowID, err := repo.DeployTemplate(context.Background(), railway.DeployTemplateOptions{
		ServiceName: "stateless",
		Source:      games.Source{Repo: "acme/server"},
	})
	if err != nil || workflowID != "wf-9" {
		t.Fatalf("unexpected result: %q, %v", workflowID, err)
	}
	if got := backend.operations(); !slices.Equal(got, []string{"DeployTemplateNoVolume"}) {
		t.Errorf("unexpected operations: %v", got)
	}
}

func TestDeployTemplate_Failure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.fail("DeployTemplate", "template missing")

	repo := newTestRepository(t, backend)
	_, err := repo.DeployTemplate(context.Background(), railway.DeployTemplateOptions{
		ServiceName:     "x",
		Source:          games.Source{Image: "a"},
		VolumeMountPath: "/data",
	})
	if !apperr.Is(err, apperr.KindDeployFailed) {
		t.Fatalf("expected DeployFailed, got %v", err)
	}
}

func TestRestartService(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("RestartService", map[string]any{"serviceInstanceRedeploy": true})

	repo := newTestRepository(t, backend)
	if err := repo.RestartService(context.Background(), testServiceID); err != nil {
		t.Fatalf("RestartService() error: %v", err)
	}
	calls := backend.callsTo("RestartService")
	if calls[0].Variables["environmentId"] != testEnvironmentID {
		t.Errorf("unexpected variables: %v", calls[0].Variables)
	}

	backend.fail("RestartService", "nope")
	if err := repo.RestartService(context.Background(), testServiceID); !apperr.Is(err, apperr.KindRestartFailed) {
		t.Errorf("expected RestartFailed, got %v", err)
	}
}

func TestCreateService(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProject", map[string]any{"project": map[string]any{
		"id":       testProjectID,
		"services": map[string]any{"edges": []map[string]any{}},
	}})
	backend.respond("CreateService", map[string]any{"serviceCreate": map[string]any{
		"id": "svc-new", "name": "Friday", "createdAt": "2025-01-01T00:00:00Z",
	}})

	repo := newTestRepository(t, backend)
	svc, err := repo.CreateService(context.Background(), railway.CreateServiceOptions{
		Name:                    "Friday",
		Source:                  games.Source{Image: "itzg/minecraft-server"},
		Variables:               map[string]string{"EULA": "TRUE", "PORT": "25565"},
		TCPProxyApplicationPort: 25565,
		VolumeMountPath:         "/data",
	})
	if err != nil {
		t.Fatalf("CreateService() error: %v", err)
	}
	if svc.ID != "svc-new" {
		t.Errorf("unexpected service: %+v", svc)
	}

	want := []string{"GetProject", "CreateService", "UpsertVariable", "UpsertVariable", "CreateVolume", "CreateTcpProxy"}
	if got := backend.operations(); !slices.Equal(got, want) {
		t.Errorf("operations = %v, want %v", got, want)
	}
}

func TestCreateService_RejectsDuplicateName(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProject", map[string]any{"project": map[string]any{
		"id": testProjectID,
		"services": map[string]any{"edges": []map[string]any{
			{"node": map[string]any{"id": "svc-1", "name": "Friday", "createdAt": "2025-01-01T00:00:00Z"}},
		}},
	}})

	repo := newTestRepository(t, backend)
	_, err := repo.CreateService(context.Background(), railway.CreateServiceOptions{
		Name:   "friday",
		Source: games.Source{Image: "itzg/minecraft-server"},
	})
	if !apperr.Is(err, apperr.KindServiceCreation) {
		t.Fatalf("expected ServiceCreation error, got %v", err)
	}
	if got := len(backend.callsTo("CreateService")); got != 0 {
		t.Errorf("expected no create call, got %d", got)
	}
}

func TestCreateService_FollowUpFailureReturnsService(t *testing.T) {
	backend := newFakeBackend(t)
	backend.respond("GetProject", map[string]any{"project": map[string]any{"id": testProjectID}})
	backend.respond("CreateService", map[string]any{"serviceCreate": map[string]any{
		"id": "svc-new", "name": "x", "createdAt": "2025-01-01T00:00:00Z",
	}})
	backend.fail("CreateTcpProxy", "no proxies left")

	repo := newTestRepository(t, backend)
	svc, err := repo.CreateService(context.Background(), railway.CreateServiceOptions{
		Name:                    "x",
		Source:                  games.Source{Image: "a"},
		TCPProxyApplicationPort: 1234,
	})
	if svc == nil || svc.ID != "svc-new" {
		t.Fatalf("expected created service to be returned, got %+v", svc)
	}
	if !apperr.Is(err, apperr.KindServiceCreation) {
		t.Fatalf("expected ServiceCreation error, got %v", err)
	}
}
