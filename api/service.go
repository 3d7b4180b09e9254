package api

import (
	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/service"
	"github.com/quietdns/vdns/util"
)

// Service implements service.HTTPService.
type Service struct {
	service.SimpleHTTP
}

func NewService(cfg config.APIService, server StrictServerInterface) *Service {
	endpoints := util.ConcatSlices(
		service.EndpointsFromAddrs(service.HTTPProtocol, cfg.Addrs.HTTP),
		service.EndpointsFromAddrs(service.HTTPSProtocol, cfg.Addrs.HTTPS),
	)

	s := &Service{
		SimpleHTTP: service.NewSimpleHTTP("API", endpoints),
	}

	RegisterOpenAPIEndpoints(s.Router(), server)

	return s
}
