package railway

// Service operations

const deployTemplateMutation = `
mutation DeployTemplate(
  $serviceId: String!
  $serviceName: String!
  $templateId: String!
  $tcpProxyApplicationPort: Int!
  $environmentId: String!
  $projectId: String!
  $workspaceId: String!
  $variables: EnvironmentVariables!
  $volumeMountPath: String!
  $volumeName: String!
) {
  templateDeploy(
    input: {
      services: {
        id: $serviceId
        serviceName: $serviceName
        template: $templateId
        tcpProxyApplicationPort: $tcpProxyApplicationPort
        variables: $variables
        volumes: { mountPath: $volumeMountPath, volumeName: $volumeName }
      }
      environmentId: $environmentId
      projectId: $projectId
      templateCode: $templateId
      workspaceId: $workspaceId
    }
  ) {
    projectId
    workflowId
  }
}`

// Same deployment for games that keep no state on disk.
const deployTemplateNoVolumeMutation = `
mutation DeployTemplateNoVolume(
  $serviceId: String!
  $serviceName: String!
  $templateId: String!
  $tcpProxyApplicationPort: Int!
  $environmentId: String!
  $projectId: String!
  $workspaceId: String!
  $variables: EnvironmentVariables!
) {
  templateDeploy(
    input: {
      services: {
        id: $serviceId
        serviceName: $serviceName
        template: $templateId
        tcpProxyApplicationPort: $tcpProxyApplicationPort
        variables: $variables
      }
      environmentId: $environmentId
      projectId: $projectId
      templateCode: $templateId
      workspaceId: $workspaceId
    }
  ) {
    projectId
    workflowId
  }
}`

const createServiceMutation = `
mutation CreateService($input: ServiceCreateInput!) {
  serviceCreate(input: $input) {
    id
    name
    createdAt
    updatedAt
  }
}`

const upsertVariableMutation = `
mutation UpsertVariable($input: VariableUpsertInput!) {
  variableUpsert(input: $input)
}`

const deleteServiceMutation = `
mutation DeleteService($serviceId: String!) {
  serviceDelete(id: $serviceId)
}`

const restartServiceMutation = `
mutation RestartService($serviceId: String!, $environmentId: String!) {
  serviceInstanceRedeploy(serviceId: $serviceId, environmentId: $environmentId)
}`

// Project operations

const getProjectQuery = `
query GetProject($projectId: String!) {
  project(id: $projectId) {
    id
    name
    services {
      edges {
        node {
          id
          name
          createdAt
          updatedAt
          deployments(first: 1) {
            edges {
              node {
                id
                environmentId
                status
                statusUpdatedAt
                staticUrl
                meta
              }
            }
          }
        }
      }
    }
  }
}`

// TCP proxy operations

const getTCPProxiesQuery = `
query GetTcpProxies($environmentId: String!, $serviceId: String!) {
  tcpProxies(environmentId: $environmentId, serviceId: $serviceId) {
    domain
    proxyPort
    serviceId
  }
}`

const createTCPProxyMutation = `
mutation CreateTcpProxy($input: TCPProxyCreateInput!) {
  tcpProxyCreate(input: $input) {
    domain
    proxyPort
    serviceId
  }
}`

// Volume operations

const getProjectVolumesQuery = `
query GetProjectVolumes($projectId: String!) {
  project(id: $projectId) {
    volumes {
      edges {
        node {
          volumeInstances {
            edges {
              node {
                serviceId
                volumeId
              }
            }
          }
        }
      }
    }
  }
}`

const createVolumeMutation = `
mutation CreateVolume($input: VolumeCreateInput!) {
  volumeCreate(input: $input) {
    id
  }
}`

const deleteVolumeMutation = `
mutation DeleteVolume($volumeId: String!) {
  volumeDelete(volumeId: $volumeId)
}`

// Workflow operations

const getWorkflowStatusQuery = `
query GetWorkflowStatus($workflowId: String!) {
  workflowStatus(workflowId: $workflowId) {
    error
    status
  }
}`
