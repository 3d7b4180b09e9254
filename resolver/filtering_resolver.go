package resolver

import (
	"context"
	"fmt"

	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/model"
	"github.com/miekg/dns"
)

// FilteringResolver filters DNS queries (for example can drop all AAAA query)
// returns empty ANSWER with NOERROR
type FilteringResolver struct {
	configurable[*config.FilteringConfig]
	NextResolver
	typed
}

func NewFilteringResolver(cfg config.FilteringConfig) *FilteringResolver {
	return &FilteringResolver{
		configurable: withConfig(&cfg),
		typed:        withType("filtering"),
	}
}

// Configuration returns a summary of this resolver's config.
func (r *FilteringResolver) Configuration() []string {
	if len(r.cfg.QueryTypes) == 0 {
		return []string{"deactivated"}
	}

	return []string{fmt.Sprintf("queryTypes = %v", r.cfg.QueryTypes)}
}

func (r *FilteringResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	qType := request.Req.Question[0].Qtype
	if r.cfg.QueryTypes.Contains(dns.Type(qType)) {
		response := new(dns.Msg)
		response.SetRcode(request.Req, dns.RcodeSuccess)

		return &model.Response{Res: response, RType: model.ResponseTypeFILTERED}, nil
	}

	return r.next.Resolve(ctx, request)
}
