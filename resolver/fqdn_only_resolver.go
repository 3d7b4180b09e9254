package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/model"
	"github.com/quietdns/vdns/util"
	"github.com/miekg/dns"
)

type FQDNOnlyResolver struct {
	configurable[*config.FQDNOnly]
	NextResolver
	typed
}

func NewFQDNOnlyResolver(cfg config.FQDNOnly) *FQDNOnlyResolver {
	return &FQDNOnlyResolver{
		configurable: withConfig(&cfg),
		typed:        withType("fqdn_only"),
	}
}

// Configuration returns a summary of this resolver's config.
func (r *FQDNOnlyResolver) Configuration() []string {
	if !r.cfg.IsEnabled() {
		return []string{"deactivated"}
	}

	return []string{"activated"}
}

func (r *FQDNOnlyResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	if r.cfg.IsEnabled() {
		domainFromQuestion := util.ExtractDomain(request.Req.Question[0])
		if !strings.Contains(domainFromQuestion, ".") {
			response := new(dns.Msg)
			response.Rcode = dns.RcodeNameError

			return &model.Response{Res: response, RType: model.ResponseTypeNOTFQDN, Reason: "NOTFQDN"}, nil
		}
	}

	resp, err := r.next.Resolve(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("resolution via next resolver failed (FQDN only): %w", err)
	}

	return resp, nil
}
