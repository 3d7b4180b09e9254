package resolver

import (
	"context"

	"github.com/quietdns/vdns/model"
)

var NoResponse = &model.Response{} //nolint:gochecknoglobals

// NoOpResolver is used to finish a resolver branch as created in RewriterResolver
type NoOpResolver struct{}

func NewNoOpResolver() Resolver {
	return NoOpResolver{}
}

func (r NoOpResolver) Configuration() (result []string) {
	return nil
}

func (r NoOpResolver) Resolve(_ context.Context, _ *model.Request) (*model.Response, error) {
	return NoResponse, nil
}
