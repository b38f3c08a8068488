package discovery

import (
	"fmt"
	"log"
	"slices"
	"strconv"

	"aptitude-service/internal/config"

	"github.com/hashicorp/consul/api"
)

type ServiceRegistry struct {
	client *api.Client
	config *config.Config
}

func NewServiceRegistry(cfg *config.Config) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.Address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %v", err)
	}

	return &ServiceRegistry{
		client: client,
		config: cfg,
	}, nil
}

// Registrations describes the http and grpc entries this instance announces.
func Registrations(cfg *config.Config) []*api.AgentServiceRegistration {
	srv := cfg.Server
	httpPort, _ := strconv.Atoi(srv.Port)
	grpcPort, _ := strconv.Atoi(srv.GRPCPort)

	return []*api.AgentServiceRegistration{
		{
			ID:      srv.ServiceID + "-http",
			Name:    srv.ServiceName,
			Port:    httpPort,
			Address: srv.ServiceAddress,
			Check: &api.AgentServiceCheck{
				HTTP:     fmt.Sprintf("http://%s:%s/health", srv.ServiceAddress, srv.Port),
				Interval: "10s",
				Timeout:  "5s",
			},
			Tags: []string{"aptitude", "ai", "http"},
			Meta: map[string]string{
				"protocol": "http",
				"version":  srv.ServiceVersion,
			},
		},
		{
			ID:      srv.ServiceID + "-grpc",
			Name:    srv.ServiceName,
			Port:    grpcPort,
			Address: srv.ServiceAddress,
			Check: &api.AgentServiceCheck{
				GRPC:     fmt.Sprintf("%s:%s/%s", srv.ServiceAddress, srv.GRPCPort, srv.ServiceName),
				Interval: "10s",
				Timeout:  "5s",
			},
			Tags: []string{"aptitude", "ai", "grpc"},
			Meta: map[string]string{
				"protocol": "grpc",
				"version":  srv.ServiceVersion,
			},
		},
	}
}

func (sr *ServiceRegistry) Register() error {
	for _, reg := range Registrations(sr.config) {
		if err := sr.client.Agent().ServiceRegister(reg); err != nil {
			return fmt.Errorf("failed to register %s service with Consul: %v", reg.Meta["protocol"], err)
		}
	}

	log.Println("Successfully registered HTTP and gRPC services with Consul")
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	for _, reg := range Registrations(sr.config) {
		if err := sr.client.Agent().ServiceDeregister(reg.ID); err != nil {
			log.Printf("Error deregistering %s: %v", reg.ID, err)
		}
	}
	return nil
}

// FindService looks up a service by name in Consul
func (sr *ServiceRegistry) FindService(serviceName string) ([]*api.ServiceEntry, error) {
	services, meta, err := sr.client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find service %s: %v", serviceName, err)
	}

	log.Printf("Found %d instances of service %s (ConsulIndex: %d)", len(services), serviceName, meta.LastIndex)

	if len(services) == 0 {
		return nil, fmt.Errorf("no healthy instances of service %s found", serviceName)
	}

	return services, nil
}

func (sr *ServiceRegistry) GetServiceAddress(serviceName string, protocol string) (string, error) {
	services, err := sr.FindService(serviceName)
	if err != nil {
		return "", err
	}
	return PickAddress(services, serviceName, protocol)
}

// PickAddress returns host:port of the first entry speaking protocol,
// matched by the protocol meta key or a tag. Protocol defaults to http.
func PickAddress(services []*api.ServiceEntry, serviceName, protocol string) (string, error) {
	if protocol == "" {
		protocol = "http"
	}

	for _, service := range services {
		proto, ok := service.Service.Meta["protocol"]
		if (ok && proto == protocol) || slices.Contains(service.Service.Tags, protocol) {
			address := service.Service.Address
			if address == "" && service.Node != nil {
				address = service.Node.Address
			}
			return fmt.Sprintf("%s:%d", address, service.Service.Port), nil
		}
	}

	return "", fmt.Errorf("no healthy instances of service %s with protocol %s found", serviceName, protocol)
}
